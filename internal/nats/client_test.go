package nats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

func applyOptions(t *testing.T, opts []nats.Option) nats.Options {
	t.Helper()
	o := nats.GetDefaultOptions()
	for _, opt := range opts {
		require.NoError(t, opt(&o))
	}
	return o
}

func TestConnectOptions(t *testing.T) {
	opts, err := connectOptions(Config{Token: "secret"}, logger.Nop())
	require.NoError(t, err)

	o := applyOptions(t, opts)
	assert.Equal(t, "pihr-autoquery", o.Name)
	assert.Equal(t, "secret", o.Token)
	assert.Equal(t, -1, o.MaxReconnect)
	assert.False(t, o.Secure)
}

func TestConnectOptionsCustomName(t *testing.T) {
	opts, err := connectOptions(Config{Name: "ledger-worker"}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "ledger-worker", applyOptions(t, opts).Name)
}

func TestConnectOptionsTLSErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := connectOptions(Config{CAFile: filepath.Join(dir, "missing.pem")}, logger.Nop())
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))
	_, err = connectOptions(Config{CAFile: bad}, logger.Nop())
	assert.Error(t, err)
}

func TestClientWithoutConnection(t *testing.T) {
	c := &Client{logger: logger.Nop()}
	assert.False(t, c.IsConnected())
	c.Close()
}
