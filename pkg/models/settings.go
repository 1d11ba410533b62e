package models

import (
	"encoding/json"
	"fmt"

	"github.com/grafana/grafana-aws-sdk/pkg/awsds"
	"github.com/grafana/grafana-plugin-sdk-go/backend"
)

// SettingsError represents an error specifically related to data source settings.
type SettingsError struct {
	Msg string
	Err error // Wrapped error
}

func (e *SettingsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("settings error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("settings error: %s", e.Msg)
}

func (e *SettingsError) Unwrap() error {
	return e.Err
}

// Settings holds the configuration of a Redshift data source instance. The
// AWS authentication fields are shared with the other AWS data sources.
type Settings struct {
	awsds.AWSDatasourceSettings

	ClusterIdentifier string `json:"clusterIdentifier"`
	WorkgroupName     string `json:"workgroupName"`
	Database          string `json:"database"`
	DBUser            string `json:"dbUser"`
}

// Serverless reports whether statements target a Redshift Serverless workgroup
// instead of a provisioned cluster.
func (s *Settings) Serverless() bool {
	return s.WorkgroupName != ""
}

type connectionSettings struct {
	ClusterIdentifier string `json:"clusterIdentifier"`
	WorkgroupName     string `json:"workgroupName"`
	Database          string `json:"database"`
	DBUser            string `json:"dbUser"`
}

// LoadSettings reads the JSON data and decrypted secure JSON data Grafana
// hands to a data source instance.
func LoadSettings(source backend.DataSourceInstanceSettings) (*Settings, error) {
	if len(source.JSONData) == 0 {
		return nil, &SettingsError{Msg: "data source settings are empty"}
	}

	settings := Settings{}
	if err := settings.AWSDatasourceSettings.Load(source); err != nil {
		return nil, &SettingsError{Msg: "could not load AWS authentication settings", Err: err}
	}

	conn := connectionSettings{}
	if err := json.Unmarshal(source.JSONData, &conn); err != nil {
		return nil, &SettingsError{Msg: "could not unmarshal connection settings JSON", Err: err}
	}
	settings.ClusterIdentifier = conn.ClusterIdentifier
	settings.WorkgroupName = conn.WorkgroupName
	settings.Database = conn.Database
	settings.DBUser = conn.DBUser

	return &settings, nil
}
