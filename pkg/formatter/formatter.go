// Package formatter converts Redshift Data API results into Grafana data
// frames, in either table or time series shape.
package formatter

import (
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/grafana/grafana-plugin-sdk-go/data"

	"redshift-grafana-plugin/pkg/api/query"
	"redshift-grafana-plugin/pkg/constant"
	"redshift-grafana-plugin/pkg/models"
)

// FormatError is returned when a result cannot be turned into a frame.
type FormatError struct {
	Msg string
	Err error // Wrapped error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("format error: %s", e.Msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// FormatResult builds the response frames for q from res. executedSQL is the
// statement after macro expansion, shown in the query inspector.
func FormatResult(res *query.Result, q *models.Query, executedSQL string) (data.Frames, error) {
	frame := data.NewFrame(constant.StandardResponseFrameName)
	frame.RefID = q.RefID
	frame.Meta = &data.FrameMeta{
		ExecutedQueryString:    executedSQL,
		PreferredVisualization: data.VisTypeTable,
	}
	if res == nil || len(res.Columns) == 0 {
		return data.Frames{frame}, nil
	}

	timeSeries := q.Format == models.FormatTimeSeries
	fieldTypes := make([]data.FieldType, len(res.Columns))
	timeIndex := -1
	for i, col := range res.Columns {
		fieldTypes[i] = fieldType(col)
		if timeIndex < 0 && fieldTypes[i] == data.FieldTypeNullableTime {
			timeIndex = i
		}
	}

	rows, dropped, err := convertRows(res, fieldTypes, timeSeries, timeIndex)
	if err != nil {
		return nil, err
	}

	if timeSeries && timeIndex >= 0 {
		fieldTypes[timeIndex] = data.FieldTypeTime
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a][timeIndex].(*time.Time).Before(*rows[b][timeIndex].(*time.Time))
		})
	}

	for i, col := range res.Columns {
		field := data.NewFieldFromFieldType(fieldTypes[i], len(rows))
		field.Name = aws.ToString(col.Name)
		for r, row := range rows {
			if row[i] == nil {
				continue
			}
			if fieldTypes[i] == data.FieldTypeTime {
				field.Set(r, *row[i].(*time.Time))
				continue
			}
			field.Set(r, row[i])
		}
		frame.Fields = append(frame.Fields, field)
	}

	if dropped > 0 {
		frame.AppendNotices(data.Notice{
			Severity: data.NoticeSeverityWarning,
			Text:     fmt.Sprintf("%d row(s) with a NULL time value were dropped", dropped),
		})
	}

	if !timeSeries {
		return data.Frames{frame}, nil
	}
	return toTimeSeries(frame, q)
}

func convertRows(res *query.Result, fieldTypes []data.FieldType, timeSeries bool, timeIndex int) ([][]interface{}, int, error) {
	rows := make([][]interface{}, 0, len(res.Records))
	dropped := 0
	for r, record := range res.Records {
		if len(record) != len(fieldTypes) {
			return nil, 0, &FormatError{Msg: fmt.Sprintf("row %d has %d values, expected %d", r, len(record), len(fieldTypes))}
		}
		row := make([]interface{}, len(record))
		for c, f := range record {
			v, err := convert(fieldTypes[c], f)
			if err != nil {
				return nil, 0, &FormatError{Msg: fmt.Sprintf("row %d column %q", r, aws.ToString(res.Columns[c].Name)), Err: err}
			}
			row[c] = v
		}
		if timeSeries && timeIndex >= 0 && row[timeIndex] == nil {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, dropped, nil
}

func toTimeSeries(frame *data.Frame, q *models.Query) (data.Frames, error) {
	frame.Meta.PreferredVisualization = data.VisTypeGraph

	switch frame.TimeSeriesSchema().Type {
	case data.TimeSeriesTypeLong:
		wide, err := data.LongToWide(frame, q.FillMode)
		if err != nil {
			return nil, &FormatError{Msg: "could not convert long frame to wide", Err: err}
		}
		wide.Name = frame.Name
		wide.RefID = frame.RefID
		wide.Meta = frame.Meta
		return data.Frames{wide}, nil
	case data.TimeSeriesTypeNot:
		log.DefaultLogger.Debug("Time series query returned no time column", "refId", q.RefID)
		frame.Meta.PreferredVisualization = data.VisTypeTable
		frame.AppendNotices(data.Notice{
			Severity: data.NoticeSeverityWarning,
			Text:     "Query returned no time column; switch the format to Table or add a time column.",
		})
	}
	return data.Frames{frame}, nil
}
