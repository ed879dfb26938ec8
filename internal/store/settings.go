package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackzampolin/novelparser/internal/types"
)

// llmConfigKey is the settings row holding the saved model configuration.
const llmConfigKey = "llm_config"

// GetSetting returns a setting value and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting stores a setting value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.write(ctx, "save setting", func() error {
		_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
		return err
	})
}

// LoadLLMConfig returns the saved model config. Fields missing from the
// stored value keep their values from base; ok is false when nothing is saved.
func (s *Store) LoadLLMConfig(ctx context.Context, base types.LLMConfig) (cfg types.LLMConfig, ok bool, err error) {
	raw, found, err := s.GetSetting(ctx, llmConfigKey)
	if err != nil || !found {
		return base, false, err
	}
	cfg = base
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		s.logger.Warn("ignoring unreadable saved LLM config", "error", err)
		return base, false, nil
	}
	return cfg, true, nil
}

// SaveLLMConfig persists the model config.
func (s *Store) SaveLLMConfig(ctx context.Context, cfg types.LLMConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode LLM config: %w", err)
	}
	return s.SetSetting(ctx, llmConfigKey, string(raw))
}
