package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/grafana/grafana-plugin-sdk-go/data"
	"github.com/grafana/grafana-plugin-sdk-go/data/sqlutil"
)

// Format selects the shape of the frames a query produces.
type Format uint32

const (
	FormatTimeSeries = Format(sqlutil.FormatOptionTimeSeries)
	FormatTable      = Format(sqlutil.FormatOptionTable)
)

// Valid reports whether f is one of the known result shapes.
func (f Format) Valid() bool {
	return f == FormatTimeSeries || f == FormatTable
}

func (f Format) String() string {
	switch f {
	case FormatTimeSeries:
		return "time_series"
	case FormatTable:
		return "table"
	default:
		return fmt.Sprintf("Format(%d)", uint32(f))
	}
}

// UnmarshalJSON accepts the numeric form used by the query editor as well as
// the names "time_series" and "table". Anything else falls back to time series.
func (f *Format) UnmarshalJSON(b []byte) error {
	*f = FormatTimeSeries

	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		if candidate := Format(n); float64(candidate) == n && candidate.Valid() {
			*f = candidate
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "table":
			*f = FormatTable
		}
	}
	return nil
}

// Query is a single SQL query authored in the query editor. The host owns
// the persisted form; the backend only reads it.
type Query struct {
	RefID    string            `json:"refId,omitempty"`
	RawSQL   string            `json:"rawSql"`
	Format   Format            `json:"format"`
	FillMode *data.FillMissing `json:"fillMode,omitempty"`

	// Used by the $__table and $__column macros.
	Table  string `json:"table,omitempty"`
	Column string `json:"column,omitempty"`

	// Not from JSON
	Interval      time.Duration     `json:"-"`
	TimeRange     backend.TimeRange `json:"-"`
	MaxDataPoints int64             `json:"-"`
}

// DefaultQuery returns the values a new query starts with. A fresh value is
// returned on every call so callers can keep the pointers it carries.
func DefaultQuery() Query {
	return Query{
		RawSQL:   "",
		Format:   FormatTimeSeries,
		FillMode: &data.FillMissing{Mode: data.FillModeNull},
	}
}

// ApplyDefaults fills every field absent from q with its default value.
// Fields already set on q are kept as they are. A non-nil FillMode counts as
// set even when its Mode is the zero value (FillModePrevious).
func ApplyDefaults(q Query) Query {
	merged := q.Clone()
	if err := mergo.Merge(&merged, DefaultQuery(), mergo.WithoutDereference); err != nil {
		log.DefaultLogger.Warn("Could not merge query defaults", "refId", q.RefID, "error", err)
	}
	if !merged.Format.Valid() {
		merged.Format = FormatTimeSeries
	}
	return merged
}

// Clone returns a copy of q that shares no pointers with it.
func (q Query) Clone() Query {
	c := q
	if q.FillMode != nil {
		fm := *q.FillMode
		c.FillMode = &fm
	}
	return c
}

// WithRawSQL returns a copy of q with its SQL text replaced.
func (q Query) WithRawSQL(rawSQL string) Query {
	c := q.Clone()
	c.RawSQL = rawSQL
	return c
}

// QueryError is returned when a query from Grafana cannot be decoded.
type QueryError struct {
	RefID string
	Msg   string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %s: %s: %v", e.RefID, e.Msg, e.Err)
	}
	return fmt.Sprintf("query %s: %s", e.RefID, e.Msg)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// ParseQuery decodes a Grafana data query, merges it with the defaults and
// copies over the request-scoped values that never travel in the JSON.
func ParseQuery(dq backend.DataQuery) (*Query, error) {
	var q Query
	if len(dq.JSON) > 0 {
		if err := json.Unmarshal(dq.JSON, &q); err != nil {
			return nil, &QueryError{RefID: dq.RefID, Msg: "could not unmarshal query JSON", Err: err}
		}
	}

	q = ApplyDefaults(q)
	q.RefID = dq.RefID
	q.Interval = dq.Interval
	q.TimeRange = dq.TimeRange
	q.MaxDataPoints = dq.MaxDataPoints
	return &q, nil
}

// SQLUtilQuery converts q into the form used by the sqlutil macro engine.
func (q Query) SQLUtilQuery() *sqlutil.Query {
	return &sqlutil.Query{
		RawSQL:        q.RawSQL,
		Format:        sqlutil.FormatQueryOption(q.Format),
		RefID:         q.RefID,
		Interval:      q.Interval,
		TimeRange:     q.TimeRange,
		MaxDataPoints: q.MaxDataPoints,
		FillMissing:   q.FillMode,
		Table:         q.Table,
		Column:        q.Column,
	}
}
