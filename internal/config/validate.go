package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Interval bounds are checked
// here so a bad ordering is rejected at load time, never at publish time.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTarget(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateReload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateTarget() error {
	if c.Target.APIBaseURL == "" {
		return errors.New("target.api_base_url must be set")
	}
	if c.Target.PublishTimeout <= 0 {
		return errors.New("target.publish_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if err := ensurePositiveMap(map[string]int{
		"queue.poll_interval_seconds":  c.Queue.PollIntervalSeconds,
		"queue.shutdown_grace_seconds": c.Queue.ShutdownGraceSeconds,
	}); err != nil {
		return err
	}
	if c.Queue.MinIntervalSeconds < 0 {
		return errors.New("queue.min_interval_seconds must be >= 0")
	}
	if c.Queue.MaxIntervalSeconds < c.Queue.MinIntervalSeconds {
		return errors.New("queue.max_interval_seconds must be >= queue.min_interval_seconds")
	}
	if c.Queue.InlinePayloadLimitKiB < 0 {
		return errors.New("queue.inline_payload_limit_kib must be >= 0")
	}
	return nil
}

func (c *Config) validateReload() error {
	if c.Reload.PollIntervalSeconds <= 0 {
		return errors.New("reload.poll_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
