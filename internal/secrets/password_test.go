package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMailPassword_EnvWins(t *testing.T) {
	t.Setenv(EnvMailPassword, " from-env ")
	pw, err := MailPassword("me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestMailPassword_Keyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvMailPassword, "")
	require.NoError(t, SetMailPassword("Me@Example.com", "from-keychain"))

	pw, err := MailPassword("me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", pw)

	require.NoError(t, DeleteMailPassword("me@example.com"))
	_, err = MailPassword("me@example.com")
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestSetMailPassword_Validation(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetMailPassword("", "x"))
	assert.Error(t, SetMailPassword("a@b.c", " "))
	assert.Error(t, DeleteMailPassword(""))
}

func TestKeyringAccount(t *testing.T) {
	assert.Equal(t, "offerwatch:smtp:me@example.com", KeyringAccount(" ME@example.com "))
}
