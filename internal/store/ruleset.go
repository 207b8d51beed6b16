package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"feedmirror/internal/config"
	"feedmirror/internal/filtering"
)

func (s *Store) seedSettings(ctx context.Context, cfg *config.Config) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO app_settings (id, min_interval_seconds, max_interval_seconds)
         VALUES (1, ?, ?)`,
		cfg.Queue.MinIntervalSeconds,
		cfg.Queue.MaxIntervalSeconds,
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// GetSettings reads the admin-managed settings row.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	var (
		settings    Settings
		enabled     int
		needsReload int
	)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT target_chat_id, queue_enabled, min_interval_seconds, max_interval_seconds, needs_reload
         FROM app_settings WHERE id = 1`,
	)
	if err := row.Scan(
		&settings.TargetChatID,
		&enabled,
		&settings.MinIntervalSeconds,
		&settings.MaxIntervalSeconds,
		&needsReload,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, errors.New("settings row missing; database not initialized")
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	settings.QueueEnabled = enabled != 0
	settings.NeedsReload = needsReload != 0
	return settings, nil
}

// UpdateSettings writes the settings row and raises the reload flag so the
// running daemon picks the change up on its next reload tick.
func (s *Store) UpdateSettings(ctx context.Context, settings Settings) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE app_settings
         SET target_chat_id = ?, queue_enabled = ?, min_interval_seconds = ?,
             max_interval_seconds = ?, needs_reload = 1
         WHERE id = 1`,
		settings.TargetChatID,
		boolToInt(settings.QueueEnabled),
		settings.MinIntervalSeconds,
		settings.MaxIntervalSeconds,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// CurrentRuleSet assembles the full mirror configuration: settings, the
// channel whitelist and the suppression rules.
func (s *Store) CurrentRuleSet(ctx context.Context) (filtering.RuleSet, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return filtering.RuleSet{}, err
	}
	whitelist, err := s.ListWhitelist(ctx)
	if err != nil {
		return filtering.RuleSet{}, err
	}
	rules, err := s.ListFilterRules(ctx)
	if err != nil {
		return filtering.RuleSet{}, err
	}
	return filtering.RuleSet{
		Whitelist:          whitelist,
		AdRules:            rules,
		MinIntervalSeconds: settings.MinIntervalSeconds,
		MaxIntervalSeconds: settings.MaxIntervalSeconds,
		TargetChatID:       settings.TargetChatID,
		QueueEnabled:       settings.QueueEnabled,
	}, nil
}

// NeedsReload reads the shared reload flag.
func (s *Store) NeedsReload(ctx context.Context) (bool, error) {
	var flag int
	row := s.db.QueryRowContext(ctx, `SELECT needs_reload FROM app_settings WHERE id = 1`)
	if err := row.Scan(&flag); err != nil {
		return false, fmt.Errorf("read reload flag: %w", err)
	}
	return flag != 0, nil
}

// ClearReloadFlag lowers the reload flag after a successful reload. It is
// never called on a failed reload, so stale rules cannot go unnoticed.
func (s *Store) ClearReloadFlag(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE app_settings SET needs_reload = 0 WHERE id = 1`); err != nil {
		return fmt.Errorf("clear reload flag: %w", err)
	}
	return nil
}

// RequestReload raises the reload flag, signaling out-of-band configuration
// changes to the running daemon.
func (s *Store) RequestReload(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE app_settings SET needs_reload = 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("request reload: %w", err)
	}
	return nil
}

// ListWhitelist returns the channel whitelist specifiers in insertion order.
func (s *Store) ListWhitelist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT specifier FROM channel_whitelist ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	defer rows.Close()

	var specifiers []string
	for rows.Next() {
		var spec string
		if err := rows.Scan(&spec); err != nil {
			return nil, err
		}
		specifiers = append(specifiers, spec)
	}
	return specifiers, rows.Err()
}

// AddWhitelistEntry inserts a whitelist specifier and raises the reload flag.
// Re-adding an existing specifier is a no-op.
func (s *Store) AddWhitelistEntry(ctx context.Context, specifier string) error {
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO channel_whitelist (specifier) VALUES (?)`,
		specifier,
	); err != nil {
		return fmt.Errorf("add whitelist entry: %w", err)
	}
	return s.RequestReload(ctx)
}

// ListFilterRules returns all suppression rules, enabled or not.
func (s *Store) ListFilterRules(ctx context.Context) ([]filtering.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pattern, is_regex, enabled FROM filter_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list filter rules: %w", err)
	}
	defer rows.Close()

	var rules []filtering.Rule
	for rows.Next() {
		var (
			rule    filtering.Rule
			isRegex int
			enabled int
		)
		if err := rows.Scan(&rule.Pattern, &isRegex, &enabled); err != nil {
			return nil, err
		}
		rule.IsRegex = isRegex != 0
		rule.Enabled = enabled != 0
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// AddFilterRule inserts a suppression rule and raises the reload flag.
func (s *Store) AddFilterRule(ctx context.Context, rule filtering.Rule) error {
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO filter_rules (pattern, is_regex, enabled) VALUES (?, ?, ?)`,
		rule.Pattern,
		boolToInt(rule.IsRegex),
		boolToInt(rule.Enabled),
	); err != nil {
		return fmt.Errorf("add filter rule: %w", err)
	}
	return s.RequestReload(ctx)
}
