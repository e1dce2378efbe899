package types

import (
	"errors"
	"time"
)

// Config validation errors. Each of the five identity fields is reported
// individually so callers can tell the operator exactly what is missing.
var (
	ErrBaseURLEmpty     = errors.New("base URL must not be empty")
	ErrEnvironmentEmpty = errors.New("environment must not be empty")
	ErrDomainEmpty      = errors.New("domain must not be empty")
	ErrUserEmpty        = errors.New("user must not be empty")
	ErrPasswordEmpty    = errors.New("password must not be empty")
)

// ConnectionConfig holds everything a Connection needs to reach the remote
// ERP system. The five identity fields (BaseURL, Environment, Domain, User,
// Password) must all be non-empty before any call is attempted; a missing
// field is a configuration error, not a call error.
type ConnectionConfig struct {
	BaseURL     string `json:"base_url" yaml:"base_url"`
	Environment string `json:"environment" yaml:"environment"`
	Domain      string `json:"domain" yaml:"domain"`
	User        string `json:"user" yaml:"user"`
	Password    string `json:"password" yaml:"password"`

	// UseWSDL selects the WSDL transport instead of the native one.
	UseWSDL bool `json:"use_wsdl" yaml:"use_wsdl"`

	// Proxy is an optional proxy URL applied to outbound calls.
	Proxy string `json:"proxy" yaml:"proxy"`

	// Timeout bounds a single wire call. The remote system enforces its own
	// multi-minute server-side timeout, so this is a backstop, not a tuning
	// knob. Zero means no client-side limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// SchemaCacheTTL controls how long fetched schema metadata stays valid.
	SchemaCacheTTL time.Duration `json:"schema_cache_ttl" yaml:"schema_cache_ttl"`
}

// Validate checks that all identity fields are present. It returns the
// sentinel for the first missing field.
func (c ConnectionConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLEmpty
	}
	if c.Environment == "" {
		return ErrEnvironmentEmpty
	}
	if c.Domain == "" {
		return ErrDomainEmpty
	}
	if c.User == "" {
		return ErrUserEmpty
	}
	if c.Password == "" {
		return ErrPasswordEmpty
	}
	return nil
}
