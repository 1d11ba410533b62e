package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"
	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/data"
	"github.com/stretchr/testify/require"
)

// MockTimeNow returns a fixed time for testing
func MockTimeNow() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

// CreateTestQuery creates a test query with the given refID, SQL and format.
func CreateTestQuery(t *testing.T, refID string, rawSQL string, format int) backend.DataQuery {
	t.Helper()

	queryJSON := map[string]interface{}{
		"rawSql": rawSQL,
		"format": format,
	}

	jsonBytes, err := json.Marshal(queryJSON)
	require.NoError(t, err)

	return backend.DataQuery{
		RefID:     refID,
		JSON:      jsonBytes,
		Interval:  time.Minute,
		TimeRange: backend.TimeRange{
			From: MockTimeNow().Add(-1 * time.Hour),
			To:   MockTimeNow(),
		},
	}
}

// CreateTestSettings creates data source settings for a provisioned cluster
// using static keys.
func CreateTestSettings(t *testing.T, region string) *backend.DataSourceInstanceSettings {
	t.Helper()
	return &backend.DataSourceInstanceSettings{
		ID:   1,
		Name: "test-redshift",
		JSONData: []byte(`{
			"region": "` + region + `",
			"authType": "keys",
			"clusterIdentifier": "redshift-cluster-grafana",
			"database": "dev",
			"dbUser": "cloud-datasources"
		}`),
		DecryptedSecureJSONData: map[string]string{
			"accessKey": "test-access-key",
			"secretKey": "test-secret-key",
		},
	}
}

// AssertFrameFields checks if a data frame has the expected fields
func AssertFrameFields(t *testing.T, frame *data.Frame, expectedFields []string) {
	t.Helper()

	require.Equal(t, len(expectedFields), len(frame.Fields), "number of fields")
	for i, field := range frame.Fields {
		require.Equal(t, expectedFields[i], field.Name, "field name")
	}
}

// CreateTestPluginContext creates a test plugin context
func CreateTestPluginContext(t *testing.T, settings *backend.DataSourceInstanceSettings) backend.PluginContext {
	t.Helper()
	return backend.PluginContext{
		DataSourceInstanceSettings: settings,
	}
}

// Column builds column metadata for a result page.
func Column(name, typeName string) types.ColumnMetadata {
	return types.ColumnMetadata{Name: &name, TypeName: &typeName}
}

// String, Long, Double, Bool and Null build record fields.
func String(v string) types.Field { return &types.FieldMemberStringValue{Value: v} }
func Long(v int64) types.Field    { return &types.FieldMemberLongValue{Value: v} }
func Double(v float64) types.Field {
	return &types.FieldMemberDoubleValue{Value: v}
}
func Bool(v bool) types.Field { return &types.FieldMemberBooleanValue{Value: v} }
func Null() types.Field       { return &types.FieldMemberIsNull{Value: true} }
