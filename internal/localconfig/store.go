// Package localconfig keeps the AI provider config on the client machine.
// It is never sent to the server.
package localconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/config"
	"cloudnav/internal/domain"
)

const (
	serviceName = "cloudnav"
	aiConfigKey = "ai_config"
)

// AIStore reads and writes AIConfig in a keyring.
type AIStore struct {
	ring keyring.Keyring
	log  logrus.FieldLogger
}

// Open opens the keyring described by cfg. An empty backend lets the keyring
// library pick the platform default; "file" stores an encrypted file under cfg.Dir.
func Open(cfg config.KeyringConfig, logger logrus.FieldLogger) (*AIStore, error) {
	kc := keyring.Config{
		ServiceName:      serviceName,
		FileDir:          cfg.Dir,
		FilePasswordFunc: keyring.FixedStringPrompt(cfg.Password),
	}
	if kc.FileDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		kc.FileDir = filepath.Join(dir, serviceName, "keyring")
	}
	if cfg.Backend != "" {
		kc.AllowedBackends = []keyring.BackendType{keyring.BackendType(cfg.Backend)}
	}

	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewAIStore(ring, logger), nil
}

// NewAIStore wraps an already opened keyring.
func NewAIStore(ring keyring.Keyring, logger logrus.FieldLogger) *AIStore {
	return &AIStore{ring: ring, log: logger.WithField("component", "localconfig")}
}

// Load returns the stored config, or the default config when nothing is stored.
func (s *AIStore) Load() (domain.AIConfig, error) {
	item, err := s.ring.Get(aiConfigKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return domain.DefaultAIConfig(), nil
	}
	if err != nil {
		return domain.AIConfig{}, fmt.Errorf("read ai config: %w", err)
	}
	var cfg domain.AIConfig
	if err := json.Unmarshal(item.Data, &cfg); err != nil {
		return domain.AIConfig{}, fmt.Errorf("decode ai config: %w", err)
	}
	return cfg, nil
}

// Save replaces the stored config.
func (s *AIStore) Save(cfg domain.AIConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	err = s.ring.Set(keyring.Item{
		Key:         aiConfigKey,
		Data:        data,
		Label:       "CloudNav AI config",
		Description: "AI provider settings used by CloudNav",
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to store AI config")
		return fmt.Errorf("store ai config: %w", err)
	}
	s.log.WithField("provider", cfg.Provider).Info("AI config stored")
	return nil
}
