// Package validator checks data source settings and queries before they are
// used, and tests the connection for health checks.
package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/grafana-plugin-sdk-go/backend"

	"redshift-grafana-plugin/pkg/api/query"
	"redshift-grafana-plugin/pkg/constant"
	"redshift-grafana-plugin/pkg/models"
)

// ValidateSettings validates the data source settings.
func ValidateSettings(settings *models.Settings) error {
	if settings == nil {
		return &models.SettingsError{Msg: "settings cannot be nil"}
	}
	if (settings.Region == "" || settings.Region == "default") && settings.DefaultRegion == "" {
		return &models.SettingsError{Msg: "region is required"}
	}
	if settings.Database == "" {
		return &models.SettingsError{Msg: "database is required"}
	}
	if settings.ClusterIdentifier == "" && settings.WorkgroupName == "" {
		return &models.SettingsError{Msg: "either a cluster identifier or a workgroup name is required"}
	}
	if settings.ClusterIdentifier != "" && settings.WorkgroupName != "" {
		return &models.SettingsError{Msg: "cluster identifier and workgroup name cannot both be set"}
	}
	if !settings.Serverless() && settings.DBUser == "" {
		return &models.SettingsError{Msg: "database user is required for a provisioned cluster"}
	}
	return nil
}

// ValidateQuery validates a parsed query.
func ValidateQuery(q *models.Query) error {
	if q == nil {
		return errors.New("query cannot be nil")
	}
	if strings.TrimSpace(q.RawSQL) == "" {
		return &models.QueryError{RefID: q.RefID, Msg: "SQL text cannot be empty"}
	}
	if !q.Format.Valid() {
		return &models.QueryError{RefID: q.RefID, Msg: fmt.Sprintf("unknown format %s", q.Format)}
	}
	return nil
}

// CheckHealth validates the settings, then runs a trivial statement to
// confirm Redshift is reachable with the configured credentials.
func CheckHealth(ctx context.Context, settings *models.Settings, executor query.StatementExecutor) (*backend.CheckHealthResult, error) {
	if executor == nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: "Statement executor is not initialized for health check.",
		}, nil
	}

	if err := ValidateSettings(settings); err != nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Plugin configuration validation failed: %s", err.Error()),
		}, nil
	}

	res, err := executor.Execute(ctx, query.Statement{SQL: constant.HealthCheckSQL})
	if err != nil {
		var stmtErr *query.StatementError
		if errors.As(err, &stmtErr) {
			return &backend.CheckHealthResult{
				Status:  backend.HealthStatusError,
				Message: fmt.Sprintf("Redshift rejected the test statement on database %q: %s", settings.Database, stmtErr.Error()),
			}, nil
		}
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Failed to connect to Redshift (%s): %s", target(settings), err.Error()),
		}, nil
	}

	if res == nil || len(res.Records) == 0 {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: "Connected to Redshift but the test statement returned no rows.",
		}, nil
	}

	return &backend.CheckHealthResult{
		Status:  backend.HealthStatusOk,
		Message: fmt.Sprintf("Data source is working. Connected to %s, database %q.", target(settings), settings.Database),
	}, nil
}

func target(settings *models.Settings) string {
	if settings.Serverless() {
		return "workgroup " + settings.WorkgroupName
	}
	return "cluster " + settings.ClusterIdentifier
}
