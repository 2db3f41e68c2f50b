package config

import "testing"

func TestDefaultsAreValid(t *testing.T) {
	config := GetDefaults()
	if err := validateConfig(config); err != nil {
		t.Fatalf("default configuration should validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "no detectors",
			mutate:  func(c *Config) { c.Engine.Detectors = nil },
			wantErr: true,
		},
		{
			name:    "named detectors",
			mutate:  func(c *Config) { c.Engine.Detectors = []string{"EMAIL", "DNI_NIE"} },
			wantErr: false,
		},
		{
			name:    "zero min value length",
			mutate:  func(c *Config) { c.Engine.MinValueLength = 0 },
			wantErr: true,
		},
		{
			name:    "audit enabled without database url",
			mutate:  func(c *Config) { c.Audit.Enabled = true },
			wantErr: true,
		},
		{
			name: "audit enabled with database url",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.DatabaseURL = "postgres://localhost/anoncore"
			},
			wantErr: false,
		},
		{
			name: "rate limit enabled with zero threshold",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.GlobalPerMinute = 0
			},
			wantErr: true,
		},
		{
			name: "rate limit disabled ignores thresholds",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.GlobalPerMinute = 0
				c.RateLimit.PerClientPerMinute = 0
			},
			wantErr: false,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaults()
			tt.mutate(config)

			err := validateConfig(config)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
