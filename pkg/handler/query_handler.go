// Package handler turns one Grafana data query into a data response: the
// query is parsed, its macros expanded, the statement run on Redshift and the
// result shaped into frames.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"redshift-grafana-plugin/pkg/api/query"
	"redshift-grafana-plugin/pkg/formatter"
	"redshift-grafana-plugin/pkg/macros"
	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/validator"
)

// HandleQuery processes a single Grafana data query.
func HandleQuery(ctx context.Context, executor query.StatementExecutor, dq backend.DataQuery) backend.DataResponse {
	logger := log.DefaultLogger.FromContext(ctx)

	q, err := models.ParseQuery(dq)
	if err != nil {
		logger.Error("Error parsing query JSON", "refId", dq.RefID, "error", err)
		return backend.ErrDataResponse(backend.StatusBadRequest, err.Error())
	}

	// A query the author has not written yet yields no frames.
	if strings.TrimSpace(q.RawSQL) == "" {
		return backend.DataResponse{}
	}

	if err := validator.ValidateQuery(q); err != nil {
		return backend.ErrDataResponse(backend.StatusBadRequest, err.Error())
	}

	sql, err := macros.Interpolate(q)
	if err != nil {
		logger.Debug("Macro interpolation failed", "refId", q.RefID, "error", err)
		return backend.ErrDataResponse(backend.StatusBadRequest, fmt.Sprintf("could not apply macros: %s", err.Error()))
	}

	logger.Debug("Processing query", "refId", q.RefID, "format", q.Format.String(), "sql", sql)

	if executor == nil {
		return backend.ErrDataResponse(backend.StatusInternal, "statement executor is not initialized")
	}

	res, err := executor.Execute(ctx, query.Statement{SQL: sql})
	if err != nil {
		logger.Error("Statement execution failed", "refId", q.RefID, "error", err)
		return executionErrorResponse(err)
	}

	frames, err := formatter.FormatResult(res, q, sql)
	if err != nil {
		logger.Error("Could not format statement result", "refId", q.RefID, "statementId", res.StatementID, "error", err)
		return backend.ErrDataResponse(backend.StatusInternal, err.Error())
	}
	return backend.DataResponse{Frames: frames}
}

// statusClientClosedRequest reports a query whose caller went away before it
// finished. Grafana uses the same code for cancelled requests.
const statusClientClosedRequest backend.Status = 499

// executionErrorResponse maps an execution failure to a response status.
// Everything past submission is attributed to Redshift.
func executionErrorResponse(err error) backend.DataResponse {
	var stmtErr *query.StatementError
	switch {
	case errors.As(err, &stmtErr):
		return backend.ErrDataResponseWithSource(backend.StatusBadRequest, backend.ErrorSourceDownstream, err.Error())
	case errors.Is(err, query.ErrStatementTimeout), errors.Is(err, context.DeadlineExceeded):
		return backend.ErrDataResponseWithSource(backend.StatusTimeout, backend.ErrorSourceDownstream, err.Error())
	case errors.Is(err, context.Canceled):
		return backend.ErrDataResponseWithSource(statusClientClosedRequest, backend.ErrorSourceDownstream, fmt.Sprintf("query cancelled: %v", err))
	default:
		return backend.ErrDataResponseWithSource(backend.StatusBadGateway, backend.ErrorSourceDownstream, err.Error())
	}
}
