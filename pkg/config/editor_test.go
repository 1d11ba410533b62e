package config

import (
	"testing"

	"github.com/grafana/grafana-aws-sdk/pkg/awsds"
	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/testutil"
)

func TestEditor_LoadAndValidate(t *testing.T) {
	tests := []struct {
		name      string
		source    backend.DataSourceInstanceSettings
		expectErr bool
		errMsg    string
	}{
		{
			name:   "valid cluster settings",
			source: *testutil.CreateTestSettings(t, "us-east-1"),
		},
		{
			name: "valid serverless settings",
			source: backend.DataSourceInstanceSettings{
				JSONData: []byte(`{"region":"eu-west-1","authType":"default","workgroupName":"analytics","database":"dev"}`),
			},
		},
		{
			name: "invalid JSON",
			source: backend.DataSourceInstanceSettings{
				JSONData: []byte(`{invalid json}`),
			},
			expectErr: true,
			errMsg:    "settings error",
		},
		{
			name:      "empty settings",
			source:    backend.DataSourceInstanceSettings{},
			expectErr: true,
			errMsg:    "settings are empty",
		},
		{
			name: "missing target",
			source: backend.DataSourceInstanceSettings{
				JSONData: []byte(`{"region":"us-east-1","database":"dev"}`),
			},
			expectErr: true,
			errMsg:    "cluster identifier or a workgroup name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := Editor{}.LoadAndValidate(tt.source)
			if tt.expectErr {
				require.Error(t, err)
				var se *models.SettingsError
				assert.ErrorAs(t, err, &se)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, settings)
		})
	}
}

func TestEditor_LoadKeepsSecrets(t *testing.T) {
	settings, err := Editor{}.Load(*testutil.CreateTestSettings(t, "us-east-1"))
	require.NoError(t, err)
	assert.Equal(t, awsds.AuthTypeKeys, settings.AuthType)
	assert.Equal(t, "test-access-key", settings.AccessKey)
	assert.Equal(t, "test-secret-key", settings.SecretKey)
	assert.Equal(t, "redshift-cluster-grafana", settings.ClusterIdentifier)
}

func TestEditor_ValidateNil(t *testing.T) {
	assert.Error(t, Editor{}.Validate(nil))
}
