package encryption

import (
	"testing"

	"tourcache/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Run("disabled returns nil", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{Enabled: false})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if e != nil {
			t.Errorf("encryptor = %T, want nil", e)
		}
	})

	t.Run("age encryptor", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{Enabled: true, Type: "age"})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if _, ok := e.(*AgeEncryptor); !ok {
			t.Errorf("encryptor = %T, want *AgeEncryptor", e)
		}
	})

	t.Run("empty type defaults to age", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{Enabled: true})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if _, ok := e.(*AgeEncryptor); !ok {
			t.Errorf("encryptor = %T, want *AgeEncryptor", e)
		}
	})

	t.Run("test encryptor", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{Enabled: true, Type: "test"})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if _, ok := e.(*TestEncryptor); !ok {
			t.Errorf("encryptor = %T, want *TestEncryptor", e)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Enabled: true, Type: "rot13"}); err == nil {
			t.Error("NewEncryptorFromConfig() expected error for unknown type")
		}
	})
}
