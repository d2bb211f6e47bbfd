package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// JWTConfig holds the signing settings for session tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	// Ephemeral is set when no JWT_SECRET was configured and a random one was
	// generated. Tokens then die with the process, as do the sessions they
	// refer to.
	Ephemeral bool
}

// NewJWTConfig reads JWT_SECRET and JWT_EXPIRATION_HOURS (default 24).
func NewJWTConfig() (*JWTConfig, error) {
	expirationStr := os.Getenv("JWT_EXPIRATION_HOURS")
	if expirationStr == "" {
		expirationStr = "24"
	}

	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid JWT_EXPIRATION_HOURS")
	}

	config := &JWTConfig{
		Secret:          os.Getenv("JWT_SECRET"),
		ExpirationHours: expirationHours,
	}

	if config.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		config.Secret = secret
		config.Ephemeral = true
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate JWT secret")
	}
	return hex.EncodeToString(buf), nil
}

func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return errors.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
