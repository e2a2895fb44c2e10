package config

import (
	"github.com/ellavondegurechaff/snapquest/snapquest"
)

// WebAppConfig contains web-specific configuration
type WebAppConfig struct {
	Config      *snapquest.Config
	Debug       bool
	Environment string
}

// NewWebAppConfig creates a new web app configuration
func NewWebAppConfig(cfg *snapquest.Config, debug bool) *WebAppConfig {
	environment := "production"
	if debug {
		environment = "development"
	}

	return &WebAppConfig{
		Config:      cfg,
		Debug:       debug,
		Environment: environment,
	}
}

// SessionKey returns the HMAC key used to sign session cookies
func (w *WebAppConfig) SessionKey() string {
	return w.Config.Web.SessionKey
}

// AdminPassphrase returns the shared device-authorization secret
func (w *WebAppConfig) AdminPassphrase() string {
	return w.Config.Web.AdminPassphrase
}
