package driving

import "github.com/custodia-labs/newsdesk/internal/core/domain"

// SettingsService resolves application settings from configuration.
type SettingsService interface {
	// Get returns the resolved settings, defaults applied.
	Get() (domain.Settings, error)

	// Validate checks the settings can start the engine.
	// Returns domain.ErrConfig for invalid chunking parameters.
	Validate(settings domain.Settings) error

	// Set stores a single configuration key.
	Set(key string, value any) error
}
