package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatepace/gatepace/internal/config"
)

func TestServerAddress(t *testing.T) {
	resetFlags := func(t *testing.T) {
		t.Helper()
		t.Cleanup(func() {
			for _, name := range []string{"host", "port"} {
				flag := serveCmd.Flags().Lookup(name)
				require.NoError(t, serveCmd.Flags().Set(name, flag.DefValue))
				flag.Changed = false
			}
		})
	}

	t.Run("ConfigValuesWinWithoutFlags", func(t *testing.T) {
		resetFlags(t)
		cfg := &config.Config{}
		cfg.Server.Host = "0.0.0.0"
		cfg.Server.Port = 9000

		host, port := serverAddress(serveCmd, cfg)
		require.Equal(t, "0.0.0.0", host)
		require.Equal(t, 9000, port)
	})

	t.Run("ExplicitFlagsOverrideConfig", func(t *testing.T) {
		resetFlags(t)
		require.NoError(t, serveCmd.Flags().Set("host", "10.0.0.5"))
		require.NoError(t, serveCmd.Flags().Set("port", "7000"))

		cfg := &config.Config{}
		cfg.Server.Host = "0.0.0.0"
		cfg.Server.Port = 9000

		host, port := serverAddress(serveCmd, cfg)
		require.Equal(t, "10.0.0.5", host)
		require.Equal(t, 7000, port)
	})

	t.Run("EmptyConfigFallsBackToDefaults", func(t *testing.T) {
		resetFlags(t)
		host, port := serverAddress(serveCmd, &config.Config{})
		require.Equal(t, "127.0.0.1", host)
		require.Equal(t, 8480, port)
	})
}
