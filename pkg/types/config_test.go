package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "zero config is valid",
			config:  Config{},
			wantErr: nil,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "json backend is valid",
			config:  Config{Backend: BackendJSON, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "unknown contention policy",
			config:  Config{ContentionPolicy: "retry"},
			wantErr: ErrContentionPolicyUnknown,
		},
		{
			name:    "negative timeout",
			config:  Config{OpenTimeout: -time.Second},
			wantErr: ErrTimeoutInvalid,
		},
		{
			name:    "assume-needed policy is valid",
			config:  Config{ContentionPolicy: AssumeNeeded},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{DataDir: "/data", MigrationTimeout: time.Minute}.WithDefaults()

	assert.Equal(t, BackendAuto, cfg.Backend)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, DefaultOpenTimeout, cfg.OpenTimeout)
	assert.Equal(t, DefaultInitWaitTimeout, cfg.InitWaitTimeout)
	assert.Equal(t, time.Minute, cfg.MigrationTimeout)
	assert.Equal(t, DefaultBusyTimeout, cfg.BusyTimeout)
	assert.Equal(t, AssumeMigrated, cfg.ContentionPolicy)
}
