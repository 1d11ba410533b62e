// Package registration describes the plugin to Grafana: one plugin ID bound
// to a data source implementation, a configuration editor and a query editor.
package registration

import (
	"errors"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/datasource"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"redshift-grafana-plugin/pkg/editor"
	"redshift-grafana-plugin/pkg/models"
)

// ConfigEditor is the configuration editing role.
type ConfigEditor interface {
	Load(source backend.DataSourceInstanceSettings) (*models.Settings, error)
	Validate(settings *models.Settings) error
}

// QueryEditor is the query editing role.
type QueryEditor interface {
	Open(query models.Query, host editor.Host) *editor.Editor
}

// Descriptor binds the three plugin roles to a plugin ID.
type Descriptor struct {
	ID            string
	NewDataSource datasource.InstanceFactoryFunc
	ConfigEditor  ConfigEditor
	QueryEditor   QueryEditor
}

var (
	ErrMissingID           = errors.New("plugin ID is required")
	ErrMissingDataSource   = errors.New("data source factory is required")
	ErrMissingConfigEditor = errors.New("configuration editor is required")
	ErrMissingQueryEditor  = errors.New("query editor is required")
)

// Validate checks that every role is bound.
func (d Descriptor) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, ErrMissingID)
	}
	if d.NewDataSource == nil {
		errs = append(errs, ErrMissingDataSource)
	}
	if d.ConfigEditor == nil {
		errs = append(errs, ErrMissingConfigEditor)
	}
	if d.QueryEditor == nil {
		errs = append(errs, ErrMissingQueryEditor)
	}
	return errors.Join(errs...)
}

// manage is datasource.Manage; tests replace it.
var manage = datasource.Manage

// Serve validates d and hands its data source factory to the plugin SDK,
// which blocks until Grafana stops the plugin.
func Serve(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	log.DefaultLogger.Info("Serving plugin", "pluginId", d.ID)
	return manage(d.ID, d.NewDataSource, datasource.ManageOpts{})
}
