package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the app's secrets in the OS keychain.
	KeyringService = "offerwatch"

	EnvMailPassword = "OFFERWATCH_MAIL_PASSWORD"
)

// ErrNoPassword means neither the environment nor the keychain had one.
var ErrNoPassword = errors.New("mail password not found (set OFFERWATCH_MAIL_PASSWORD or store it in the keychain)")

// MailPassword returns the SMTP password for sender: environment first,
// then the keychain entry for the sender address.
func MailPassword(sender string) (string, error) {
	if pw := strings.TrimSpace(os.Getenv(EnvMailPassword)); pw != "" {
		return pw, nil
	}
	if strings.TrimSpace(sender) != "" {
		pw, err := keyring.Get(KeyringService, KeyringAccount(sender))
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	return "", ErrNoPassword
}

func SetMailPassword(sender, password string) error {
	if strings.TrimSpace(sender) == "" {
		return errors.New("sender address is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, KeyringAccount(sender), password)
}

func DeleteMailPassword(sender string) error {
	if strings.TrimSpace(sender) == "" {
		return errors.New("sender address is empty")
	}
	return keyring.Delete(KeyringService, KeyringAccount(sender))
}

func KeyringAccount(sender string) string {
	return "offerwatch:smtp:" + strings.ToLower(strings.TrimSpace(sender))
}
