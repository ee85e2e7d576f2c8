package encryption

import (
	"fmt"

	"tourcache/internal/config"
	"tourcache/internal/offline"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration.
// Returns nil (no encryption) when at-rest encryption is disabled.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (offline.Encryptor, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
