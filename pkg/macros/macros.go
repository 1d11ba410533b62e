// Package macros expands the Grafana SQL macros ($__timeFilter, $__timeGroup,
// ...) into Redshift SQL before a statement is submitted.
package macros

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend/gtime"
	"github.com/grafana/grafana-plugin-sdk-go/data/sqlutil"

	"redshift-grafana-plugin/pkg/models"
)

// MacroError is returned when a macro is called with bad arguments.
type MacroError struct {
	Macro string
	Msg   string
	Err   error // Wrapped error
}

func (e *MacroError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("macro $__%s: %s: %v", e.Macro, e.Msg, e.Err)
	}
	return fmt.Sprintf("macro $__%s: %s", e.Macro, e.Msg)
}

func (e *MacroError) Unwrap() error {
	return e.Err
}

// Definition describes a macro offered to query authors.
type Definition struct {
	Name string
	Args string
}

// Label is the text a query author types to call the macro.
func (d Definition) Label() string {
	return "$__" + d.Name
}

// Definitions lists the macros in the order the query editor advertises them.
var Definitions = []Definition{
	{Name: "timeFilter", Args: "(column)"},
	{Name: "timeGroup", Args: "(column, interval)"},
	{Name: "timeEpoch", Args: "(column)"},
	{Name: "timeFrom", Args: "()"},
	{Name: "timeTo", Args: "()"},
	{Name: "unixEpochFilter", Args: "(column)"},
	{Name: "table", Args: ""},
	{Name: "column", Args: ""},
}

const timeLayout = "2006-01-02 15:04:05"

// Macros is the Redshift macro set. $__table and $__column come from sqlutil.
var Macros = sqlutil.Macros{
	"timeFilter":      timeFilter,
	"timeGroup":       timeGroup,
	"timeEpoch":       timeEpoch,
	"timeFrom":        timeFrom,
	"timeTo":          timeTo,
	"unixEpochFilter": unixEpochFilter,
	"table":           sqlutil.DefaultMacros["table"],
	"column":          sqlutil.DefaultMacros["column"],
}

// Interpolate expands every macro in the query's SQL text.
func Interpolate(q *models.Query) (string, error) {
	return sqlutil.Interpolate(q.SQLUtilQuery(), Macros)
}

func columnArg(name string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", &MacroError{Macro: name, Msg: fmt.Sprintf("expected 1 argument, got %d", len(args))}
	}
	return strings.TrimSpace(args[0]), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func timeFilter(q *sqlutil.Query, args []string) (string, error) {
	column, err := columnArg("timeFilter", args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s BETWEEN '%s' AND '%s'", column, formatTime(q.TimeRange.From), formatTime(q.TimeRange.To)), nil
}

func timeFrom(q *sqlutil.Query, _ []string) (string, error) {
	return fmt.Sprintf("'%s'", formatTime(q.TimeRange.From)), nil
}

func timeTo(q *sqlutil.Query, _ []string) (string, error) {
	return fmt.Sprintf("'%s'", formatTime(q.TimeRange.To)), nil
}

func timeEpoch(_ *sqlutil.Query, args []string) (string, error) {
	column, err := columnArg("timeEpoch", args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`extract(epoch from %s) AS "time"`, column), nil
}

func unixEpochFilter(q *sqlutil.Query, args []string) (string, error) {
	column, err := columnArg("unixEpochFilter", args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s >= %d AND %s <= %d", column, q.TimeRange.From.UTC().Unix(), column, q.TimeRange.To.UTC().Unix()), nil
}

// timeGroup buckets a timestamp column into interval-wide slots:
// $__timeGroup(column, interval).
func timeGroup(q *sqlutil.Query, args []string) (string, error) {
	if len(args) != 2 {
		return "", &MacroError{Macro: "timeGroup", Msg: fmt.Sprintf("expected 2 arguments, got %d", len(args))}
	}
	column := strings.TrimSpace(args[0])
	if column == "" {
		return "", &MacroError{Macro: "timeGroup", Msg: "column cannot be empty"}
	}

	interval, err := parseInterval(q, strings.Trim(strings.TrimSpace(args[1]), `'"`))
	if err != nil {
		return "", &MacroError{Macro: "timeGroup", Msg: "invalid interval", Err: err}
	}

	seconds := int64(math.Max(1, math.Floor(interval.Seconds())))
	return fmt.Sprintf(
		"timestamp 'epoch' + floor(extract(epoch from %s)/%d)*%d * interval '1 second'",
		column, seconds, seconds,
	), nil
}

func parseInterval(q *sqlutil.Query, arg string) (time.Duration, error) {
	if arg == "$__interval" {
		if q.Interval <= 0 {
			return time.Second, nil
		}
		return q.Interval, nil
	}
	return gtime.ParseDuration(arg)
}
