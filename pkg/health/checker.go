// Package health runs the data source health check Grafana triggers from the
// "Save & test" button.
package health

import (
	"context"
	"fmt"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"redshift-grafana-plugin/pkg/api/query"
	"redshift-grafana-plugin/pkg/client"
	"redshift-grafana-plugin/pkg/config"
	"redshift-grafana-plugin/pkg/registration"
	"redshift-grafana-plugin/pkg/validator"
)

// PerformHealthCheck loads the settings Grafana sent through configEditor,
// builds a Data API client from them and runs a test statement. Configuration
// problems are reported through the result, never as a Go error.
func PerformHealthCheck(ctx context.Context, dsSettings backend.DataSourceInstanceSettings, configEditor registration.ConfigEditor, factory client.ClientFactory) (*backend.CheckHealthResult, error) {
	logger := log.DefaultLogger.FromContext(ctx)
	logger.Debug("Starting health check", "datasourceID", dsSettings.ID)

	if configEditor == nil {
		configEditor = config.Editor{}
	}
	settings, err := configEditor.Load(dsSettings)
	if err != nil {
		logger.Error("Failed to load data source settings", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Failed to load datasource configuration: %s", err.Error()),
		}, nil
	}

	if err := configEditor.Validate(settings); err != nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Plugin configuration validation failed: %s", err.Error()),
		}, nil
	}

	if factory == nil {
		factory = client.NewDefaultClientFactory()
	}
	api, err := factory.NewClient(ctx, settings)
	if err != nil {
		logger.Error("Failed to create Redshift Data API client", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("AWS credentials invalid or client failed to initialize: %s", err.Error()),
		}, nil
	}

	result, err := validator.CheckHealth(ctx, settings, query.NewExecutor(api, settings))
	if err != nil {
		logger.Error("Unexpected error from health check statement", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Internal error during Redshift check: %s", err.Error()),
		}, nil
	}

	logger.Debug("Health check completed", "status", result.Status.String(), "message", result.Message)
	return result, nil
}

// ExecuteHealthCheck is the entry point used by the data source. Tests swap
// it out.
var ExecuteHealthCheck = func(ctx context.Context, dsSettings backend.DataSourceInstanceSettings, configEditor registration.ConfigEditor, factory client.ClientFactory) (*backend.CheckHealthResult, error) {
	return PerformHealthCheck(ctx, dsSettings, configEditor, factory)
}
