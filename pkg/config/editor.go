// Package config is the backend side of the configuration editor: it reads
// the settings the editor saved and checks that they describe a reachable
// Redshift target.
package config

import (
	"github.com/grafana/grafana-plugin-sdk-go/backend"

	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/validator"
)

// Editor loads and validates data source settings.
type Editor struct{}

// Load reads the settings Grafana persisted for a data source instance.
func (Editor) Load(source backend.DataSourceInstanceSettings) (*models.Settings, error) {
	return models.LoadSettings(source)
}

// Validate reports the first problem with settings, or nil.
func (Editor) Validate(settings *models.Settings) error {
	return validator.ValidateSettings(settings)
}

// LoadAndValidate is Load followed by Validate.
func (e Editor) LoadAndValidate(source backend.DataSourceInstanceSettings) (*models.Settings, error) {
	settings, err := e.Load(source)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
