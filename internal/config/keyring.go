package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

// KeyringService is the service name under which the token is stored.
const KeyringService = "whisper-lead"

const tokenKey = "auth_token"

// OpenKeyring opens the platform keyring with the backends the client supports.
func OpenKeyring() (keyring.Keyring, error) {
	kr, err := keyring.Open(keyring.Config{
		ServiceName: KeyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.WinCredBackend,
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
		},
		LibSecretCollectionName:  "login",
		WinCredPrefix:            KeyringService,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring for service '%s': %w", KeyringService, err)
	}
	return kr, nil
}

// KeyringAvailable reports whether a keyring backend can be opened.
func KeyringAvailable() bool {
	_, err := OpenKeyring()
	return err == nil
}

func (c *Config) keyring() (keyring.Keyring, error) {
	if c.kr != nil {
		return c.kr, nil
	}
	kr, err := OpenKeyring()
	if err != nil {
		return nil, err
	}
	c.kr = kr
	return kr, nil
}

// loadKeyringToken resolves the token. Failures leave it empty so activation
// reports TokenMissing instead of failing the load.
func (c *Config) loadKeyringToken() {
	kr, err := c.keyring()
	if err != nil {
		c.log.Warn().Err(err).Msg("Keyring unavailable, auth token not loaded")
		return
	}
	item, err := kr.Get(tokenKey)
	switch {
	case err == nil:
		c.token = strings.TrimSpace(string(item.Data))
		c.log.Debug().Msg("Auth token loaded from keyring")
	case errors.Is(err, keyring.ErrKeyNotFound):
		c.log.Warn().Str("service", KeyringService).Msg("Auth token not found in keyring")
	default:
		c.log.Error().Err(err).Msg("Error retrieving auth token from keyring")
	}
}
