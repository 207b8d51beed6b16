package config

import (
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	dataDir, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = dataDir

	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = filepath.Join(dataDir, "media")
	} else {
		mediaDir, err := expandPath(c.Paths.MediaDir)
		if err != nil {
			return err
		}
		c.Paths.MediaDir = mediaDir
	}

	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(dataDir, "logs")
	} else {
		logDir, err := expandPath(c.Paths.LogDir)
		if err != nil {
			return err
		}
		c.Paths.LogDir = logDir
	}

	c.Target.BotToken = strings.TrimSpace(c.Target.BotToken)
	c.Target.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Target.APIBaseURL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
