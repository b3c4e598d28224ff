// Package secrets resolves the SMTP credential without ever putting it
// in the config file. Environment variable first, OS keychain second.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"jobscan-engine/internal/config"
)

const (
	// KeyringService groups the engine's secrets in the OS keychain.
	KeyringService = "jobscan"

	// EnvSMTPPassword overrides the keychain, mainly for headless hosts.
	EnvSMTPPassword = "JOBSCAN_SMTP_PASSWORD"
)

var ErrNotFound = errors.New("SMTP password not found (set " + EnvSMTPPassword + " or store it in the keychain)")

func GetSMTPPassword(keyringAccount string) (string, error) {
	if pw := strings.TrimSpace(os.Getenv(EnvSMTPPassword)); pw != "" {
		return pw, nil
	}

	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}

	return "", ErrNotFound
}

func SetSMTPPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteSMTPPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

func SMTPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf(
		"jobscan:smtp:%s@%s",
		cfg.Email.Username,
		cfg.Email.SMTPHost,
	)
}
