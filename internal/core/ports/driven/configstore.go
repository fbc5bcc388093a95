package driven

import "github.com/custodia-labs/docquery/internal/core/domain"

// SettingsStore persists application settings. Backed by a TOML file in
// the docquery config directory.
type SettingsStore interface {
	// Load reads settings from storage. Missing storage yields defaults.
	Load() (*domain.Settings, error)

	// Save writes settings to storage.
	Save(settings *domain.Settings) error

	// Path returns the storage location for display.
	Path() string
}
