package types

import (
	"testing"
	"time"
)

func validConfig() ConnectionConfig {
	return ConnectionConfig{
		BaseURL:     "https://erp.example.com/services",
		Environment: "400",
		Domain:      "CORP",
		User:        "svc_stock",
		Password:    "secret",
		Timeout:     30 * time.Second,
	}
}

func TestConnectionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConnectionConfig)
		wantErr error
	}{
		{"valid", func(c *ConnectionConfig) {}, nil},
		{"missing base URL", func(c *ConnectionConfig) { c.BaseURL = "" }, ErrBaseURLEmpty},
		{"missing environment", func(c *ConnectionConfig) { c.Environment = "" }, ErrEnvironmentEmpty},
		{"missing domain", func(c *ConnectionConfig) { c.Domain = "" }, ErrDomainEmpty},
		{"missing user", func(c *ConnectionConfig) { c.User = "" }, ErrUserEmpty},
		{"missing password", func(c *ConnectionConfig) { c.Password = "" }, ErrPasswordEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestErrorSourceString(t *testing.T) {
	tests := []struct {
		source ErrorSource
		want   string
	}{
		{SourceCode, "code"},
		{SourceCall, "call"},
		{SourceConfig, "config"},
		{SourceWire, "wire"},
		{SourceTransport, "transport"},
		{ErrorSource(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("ErrorSource(%d).String() = %q, want %q", tt.source, got, tt.want)
		}
	}
}
