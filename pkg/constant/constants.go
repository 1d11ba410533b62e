package constant

const (
	// PluginID is the identity Grafana loads the plugin under.
	PluginID = "grafana-redshift-datasource"

	// Frame names used for Grafana DataFrames
	StandardResponseFrameName = "response"

	// Health check statement
	HealthCheckSQL = "SELECT 1"

	// Statement throttling per data source instance
	StatementsPerSecond = 5.0
	StatementBurst      = 10.0

	// Queries from one request running at the same time
	MaxConcurrentQueries = 5
)
