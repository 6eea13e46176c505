package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		wantCfg *Config
	}{
		{
			name: "defaults (no env set)",
			env:  map[string]string{},
			wantCfg: &Config{
				BrokerPort:       7331,
				TuningFile:       "",
				BrokerURL:        "ws://127.0.0.1:7331/ws",
				ExtensionID:      "ghostwire-bridge-sim",
				ExtensionVersion: "dev",
				RelayToken:       "",
				LogLevel:         "info",
			},
		},
		{
			name: "custom valid env",
			env: map[string]string{
				"PORT":              "9000",
				"TUNING_FILE":       "/tmp/tuning.yaml",
				"BROKER_URL":        "ws://127.0.0.1:9000/ws",
				"EXTENSION_ID":      "test-bridge",
				"EXTENSION_VERSION": "1.2.3",
				"RELAY_TOKEN":       "sometoken",
				"LOG_LEVEL":         "debug",
			},
			wantCfg: &Config{
				BrokerPort:       9000,
				TuningFile:       "/tmp/tuning.yaml",
				BrokerURL:        "ws://127.0.0.1:9000/ws",
				ExtensionID:      "test-bridge",
				ExtensionVersion: "1.2.3",
				RelayToken:       "sometoken",
				LogLevel:         "debug",
			},
		},
		{
			name: "port out of range",
			env: map[string]string{
				"PORT": "70000",
			},
			wantErr: true,
		},
		{
			name: "missing broker url (set to empty)",
			env: map[string]string{
				"BROKER_URL": "",
			},
			wantErr: true,
		},
		{
			name: "missing extension id (set to empty)",
			env: map[string]string{
				"EXTENSION_ID": "",
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			env: map[string]string{
				"LOG_LEVEL": "verbose",
			},
			wantErr: true,
		},
	}

	for idx := range testCases {
		tc := testCases[idx]
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				require.Equal(t, tc.wantCfg, cfg)
			}
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	require.True(t, cfg.Logger().Enabled(nil, -4))

	cfg = &Config{LogLevel: "error"}
	require.False(t, cfg.Logger().Enabled(nil, 0))
}
