package duplication

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/episode-duplication/internal/platform/envutil"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

// Settings tunes the duplication chain. Durations are whole seconds so the
// same struct reads cleanly from YAML and the environment.
type Settings struct {
	Enabled    bool   `yaml:"enabled"`
	FeatureKey string `yaml:"feature_key"`

	InnerChunkSize       int `yaml:"inner_chunk_size"`
	OuterChunkMultiplier int `yaml:"outer_chunk_multiplier"`
	BlockChunkSize       int `yaml:"block_chunk_size"`
	TxAttempts           int `yaml:"tx_attempts"`

	ThrottleMaxExceptions int `yaml:"throttle_max_exceptions"`
	ThrottleWindowSeconds int `yaml:"throttle_window_seconds"`
	FeatureDeferSeconds   int `yaml:"feature_defer_seconds"`
	LockTTLSeconds        int `yaml:"lock_ttl_seconds"`
	LockRetrySeconds      int `yaml:"lock_retry_seconds"`
	// StageMaxAttempts bounds retries of a stage that failed before its handler ran.
	StageMaxAttempts int `yaml:"stage_max_attempts"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:               true,
		FeatureKey:            "feature:episode_duplication",
		InnerChunkSize:        100,
		OuterChunkMultiplier:  10,
		BlockChunkSize:        200,
		TxAttempts:            3,
		ThrottleMaxExceptions: 5,
		ThrottleWindowSeconds: 60,
		FeatureDeferSeconds:   30,
		LockTTLSeconds:        900,
		LockRetrySeconds:      5,
		StageMaxAttempts:      3,
	}
}

// OuterChunkSize is the parent-level chunk size used when rebuilding id maps.
func (s Settings) OuterChunkSize() int { return s.InnerChunkSize * s.OuterChunkMultiplier }

func (s Settings) ThrottleWindow() time.Duration {
	return time.Duration(s.ThrottleWindowSeconds) * time.Second
}
func (s Settings) FeatureDeferDelay() time.Duration {
	return time.Duration(s.FeatureDeferSeconds) * time.Second
}
func (s Settings) LockTTL() time.Duration { return time.Duration(s.LockTTLSeconds) * time.Second }
func (s Settings) LockRetryDelay() time.Duration {
	return time.Duration(s.LockRetrySeconds) * time.Second
}

func (s Settings) Validate() error {
	switch {
	case s.InnerChunkSize < 1:
		return fmt.Errorf("duplication settings: inner_chunk_size must be >= 1, got %d", s.InnerChunkSize)
	case s.OuterChunkMultiplier < 1:
		return fmt.Errorf("duplication settings: outer_chunk_multiplier must be >= 1, got %d", s.OuterChunkMultiplier)
	case s.BlockChunkSize < 1:
		return fmt.Errorf("duplication settings: block_chunk_size must be >= 1, got %d", s.BlockChunkSize)
	case s.TxAttempts < 1:
		return fmt.Errorf("duplication settings: tx_attempts must be >= 1, got %d", s.TxAttempts)
	case s.ThrottleMaxExceptions < 1:
		return fmt.Errorf("duplication settings: throttle_max_exceptions must be >= 1, got %d", s.ThrottleMaxExceptions)
	case s.ThrottleWindowSeconds < 1:
		return fmt.Errorf("duplication settings: throttle_window_seconds must be >= 1, got %d", s.ThrottleWindowSeconds)
	case s.LockTTLSeconds < 1:
		return fmt.Errorf("duplication settings: lock_ttl_seconds must be >= 1, got %d", s.LockTTLSeconds)
	case s.StageMaxAttempts < 1:
		return fmt.Errorf("duplication settings: stage_max_attempts must be >= 1, got %d", s.StageMaxAttempts)
	}
	return nil
}

// LoadSettings layers defaults, the YAML file named by DUPLICATION_CONFIG_PATH,
// and DUPLICATION_* environment variables, in that order.
func LoadSettings(log *logger.Logger) (Settings, error) {
	s := DefaultSettings()

	if path := strings.TrimSpace(os.Getenv("DUPLICATION_CONFIG_PATH")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read duplication config %s: %w", path, err)
		}
		file := struct {
			Duplication Settings `yaml:"duplication"`
		}{Duplication: s}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return s, fmt.Errorf("parse duplication config %s: %w", path, err)
		}
		s = file.Duplication
		if log != nil {
			log.Info("Loaded duplication config file", "path", path)
		}
	}

	s.Enabled = envutil.Bool("DUPLICATION_ENABLED", s.Enabled)
	s.FeatureKey = envutil.String("DUPLICATION_FEATURE_KEY", s.FeatureKey)
	s.InnerChunkSize = envutil.Int("DUPLICATION_INNER_CHUNK_SIZE", s.InnerChunkSize)
	s.OuterChunkMultiplier = envutil.Int("DUPLICATION_OUTER_CHUNK_MULTIPLIER", s.OuterChunkMultiplier)
	s.BlockChunkSize = envutil.Int("DUPLICATION_BLOCK_CHUNK_SIZE", s.BlockChunkSize)
	s.TxAttempts = envutil.Int("DUPLICATION_TX_ATTEMPTS", s.TxAttempts)
	s.ThrottleMaxExceptions = envutil.Int("DUPLICATION_THROTTLE_MAX_EXCEPTIONS", s.ThrottleMaxExceptions)
	s.ThrottleWindowSeconds = envutil.Int("DUPLICATION_THROTTLE_WINDOW_SECONDS", s.ThrottleWindowSeconds)
	s.FeatureDeferSeconds = envutil.Int("DUPLICATION_FEATURE_DEFER_SECONDS", s.FeatureDeferSeconds)
	s.LockTTLSeconds = envutil.Int("DUPLICATION_LOCK_TTL_SECONDS", s.LockTTLSeconds)
	s.LockRetrySeconds = envutil.Int("DUPLICATION_LOCK_RETRY_SECONDS", s.LockRetrySeconds)
	s.StageMaxAttempts = envutil.Int("DUPLICATION_STAGE_MAX_ATTEMPTS", s.StageMaxAttempts)

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
