package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"
	"github.com/grafana/grafana-aws-sdk/pkg/awsds"
	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redshift-grafana-plugin/pkg/api/query"
	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/testutil"
)

func clusterSettings() *models.Settings {
	return &models.Settings{
		AWSDatasourceSettings: awsds.AWSDatasourceSettings{Region: "us-east-1"},
		ClusterIdentifier:     "redshift-cluster-grafana",
		Database:              "dev",
		DBUser:                "cloud-datasources",
	}
}

type fakeExecutor struct {
	res  *query.Result
	err  error
	seen []query.Statement
}

func (f *fakeExecutor) Execute(_ context.Context, stmt query.Statement) (*query.Result, error) {
	f.seen = append(f.seen, stmt)
	return f.res, f.err
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *models.Settings)
		nilIt   bool
		wantErr string
	}{
		{name: "valid cluster"},
		{name: "valid workgroup", mutate: func(s *models.Settings) {
			s.ClusterIdentifier, s.DBUser, s.WorkgroupName = "", "", "analytics"
		}},
		{name: "default region only", mutate: func(s *models.Settings) {
			s.Region, s.DefaultRegion = "", "eu-west-1"
		}},
		{name: "nil", nilIt: true, wantErr: "cannot be nil"},
		{name: "no region", mutate: func(s *models.Settings) { s.Region = "" }, wantErr: "region is required"},
		{name: "default region unset", mutate: func(s *models.Settings) { s.Region = "default" }, wantErr: "region is required"},
		{name: "no database", mutate: func(s *models.Settings) { s.Database = "" }, wantErr: "database is required"},
		{name: "no target", mutate: func(s *models.Settings) { s.ClusterIdentifier = "" }, wantErr: "either a cluster"},
		{name: "both targets", mutate: func(s *models.Settings) { s.WorkgroupName = "wg" }, wantErr: "cannot both be set"},
		{name: "cluster without user", mutate: func(s *models.Settings) { s.DBUser = "" }, wantErr: "database user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := clusterSettings()
			if tt.mutate != nil {
				tt.mutate(s)
			}
			if tt.nilIt {
				s = nil
			}
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var se *models.SettingsError
			assert.ErrorAs(t, err, &se)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateQuery(t *testing.T) {
	assert.Error(t, ValidateQuery(nil))
	assert.Error(t, ValidateQuery(&models.Query{RefID: "A", RawSQL: "   "}))
	assert.Error(t, ValidateQuery(&models.Query{RefID: "A", RawSQL: "SELECT 1", Format: models.Format(7)}))
	assert.NoError(t, ValidateQuery(&models.Query{RefID: "A", RawSQL: "SELECT 1", Format: models.FormatTable}))
}

func TestCheckHealth(t *testing.T) {
	okResult := &query.Result{
		Columns: []types.ColumnMetadata{testutil.Column("?column?", "int4")},
		Records: [][]types.Field{{testutil.Long(1)}},
	}

	tests := []struct {
		name        string
		settings    *models.Settings
		executor    query.StatementExecutor
		wantStatus  backend.HealthStatus
		wantMessage string
	}{
		{
			name:        "healthy",
			settings:    clusterSettings(),
			executor:    &fakeExecutor{res: okResult},
			wantStatus:  backend.HealthStatusOk,
			wantMessage: "cluster redshift-cluster-grafana",
		},
		{
			name:        "nil executor",
			settings:    clusterSettings(),
			wantStatus:  backend.HealthStatusError,
			wantMessage: "not initialized",
		},
		{
			name:        "invalid settings",
			settings:    &models.Settings{},
			executor:    &fakeExecutor{res: okResult},
			wantStatus:  backend.HealthStatusError,
			wantMessage: "validation failed",
		},
		{
			name:        "statement failed",
			settings:    clusterSettings(),
			executor:    &fakeExecutor{err: &query.ExecutionError{Err: &query.StatementError{Status: types.StatusStringFailed, Msg: "permission denied"}}},
			wantStatus:  backend.HealthStatusError,
			wantMessage: "permission denied",
		},
		{
			name:        "connection failed",
			settings:    clusterSettings(),
			executor:    &fakeExecutor{err: errors.New("no such host")},
			wantStatus:  backend.HealthStatusError,
			wantMessage: "Failed to connect",
		},
		{
			name:        "no rows",
			settings:    clusterSettings(),
			executor:    &fakeExecutor{res: &query.Result{}},
			wantStatus:  backend.HealthStatusError,
			wantMessage: "no rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CheckHealth(context.Background(), tt.settings, tt.executor)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Contains(t, res.Message, tt.wantMessage)
		})
	}
}

func TestCheckHealth_RunsTestStatement(t *testing.T) {
	exec := &fakeExecutor{res: &query.Result{Records: [][]types.Field{{testutil.Long(1)}}}}
	_, err := CheckHealth(context.Background(), clusterSettings(), exec)
	require.NoError(t, err)
	require.Len(t, exec.seen, 1)
	assert.Equal(t, "SELECT 1", exec.seen[0].SQL)
}
