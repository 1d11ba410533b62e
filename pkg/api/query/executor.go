// Package query runs SQL statements through the Redshift Data API. A
// statement is submitted, polled until it settles and its result pages are
// collected.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/grafana/grafana-plugin-sdk-go/backend/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"redshift-grafana-plugin/pkg/metrics"
	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/ratelimit"
	"redshift-grafana-plugin/pkg/redshiftiface"
)

// ExecutionError represents an error while running a statement.
type ExecutionError struct {
	StatementID string
	Query       string
	Msg         string
	Err         error // Wrapped error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("statement execution error for '%s': %s: %v", e.Query, e.Msg, e.Err)
	}
	return fmt.Sprintf("statement execution error for '%s': %s", e.Query, e.Msg)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// StatementError is reported by Redshift when a statement fails or is aborted.
// It is the query author's problem, not the plugin's.
type StatementError struct {
	Status types.StatusString
	Msg    string
}

func (e *StatementError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("statement %s", strings.ToLower(string(e.Status)))
	}
	return fmt.Sprintf("statement %s: %s", strings.ToLower(string(e.Status)), e.Msg)
}

var errStatementPending = errors.New("statement still running")

// ErrStatementTimeout is returned when a statement is still running after the
// polling schedule gives up. The statement is cancelled before returning.
var ErrStatementTimeout = errors.New("timed out waiting for statement to finish")

// Statement is SQL text plus its named parameters (:name placeholders).
type Statement struct {
	SQL        string
	Parameters []types.SqlParameter
}

// Result holds every record of a finished statement.
type Result struct {
	StatementID string
	Columns     []types.ColumnMetadata
	Records     [][]types.Field
}

// StatementExecutor runs a statement to completion. *Executor implements it;
// tests substitute their own.
type StatementExecutor interface {
	Execute(ctx context.Context, stmt Statement) (*Result, error)
}

var _ StatementExecutor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithBackOff sets the polling schedule used while a statement runs.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(e *Executor) {
		e.newBackOff = newBackOff
	}
}

// WithRateLimiter throttles statement submissions.
func WithRateLimiter(limiter *ratelimit.RateLimiter) Option {
	return func(e *Executor) {
		e.limiter = limiter
	}
}

// DefaultBackOff polls quickly at first, then settles at two seconds and
// gives up after five minutes.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 1.5
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 5 * time.Minute
	return b
}

// Executor handles the execution of statements against one data source.
type Executor struct {
	api        redshiftiface.RedshiftDataAPI
	settings   *models.Settings
	limiter    *ratelimit.RateLimiter
	newBackOff func() backoff.BackOff
}

// NewExecutor creates an executor sending statements to the cluster or
// workgroup named in settings.
func NewExecutor(api redshiftiface.RedshiftDataAPI, settings *models.Settings, opts ...Option) *Executor {
	e := &Executor{
		api:        api,
		settings:   settings,
		newBackOff: DefaultBackOff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute submits stmt, waits for it to finish and returns its records. If
// ctx is cancelled while the statement runs, or the statement outlives the
// polling schedule, the statement is cancelled too.
func (e *Executor) Execute(ctx context.Context, stmt Statement) (res *Result, err error) {
	if e.api == nil {
		return nil, &ExecutionError{Query: stmt.SQL, Msg: "Redshift Data API client is nil, cannot execute statement"}
	}
	if e.settings == nil {
		return nil, &ExecutionError{Query: stmt.SQL, Msg: "data source settings are nil, cannot execute statement"}
	}
	if strings.TrimSpace(stmt.SQL) == "" {
		return nil, &ExecutionError{Query: stmt.SQL, Msg: "SQL text cannot be empty"}
	}

	ctx, span := tracing.DefaultTracer().Start(ctx, "redshift.ExecuteStatement", trace.WithAttributes(
		attribute.String("db.system", "redshift"),
		attribute.String("db.name", e.settings.Database),
	))
	track := metrics.Track()
	defer func() {
		track(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := log.DefaultLogger.FromContext(ctx)

	if waitErr := e.limiter.Wait(ctx); waitErr != nil {
		return nil, &ExecutionError{Query: stmt.SQL, Msg: "interrupted while waiting for rate limiter", Err: waitErr}
	}

	out, err := e.api.ExecuteStatement(ctx, e.executeInput(stmt))
	if err != nil {
		return nil, &ExecutionError{Query: stmt.SQL, Msg: "failed to submit statement", Err: err}
	}
	id := aws.ToString(out.Id)
	span.SetAttributes(attribute.String("redshift.statement_id", id))
	logger.Debug("Statement submitted", "statementId", id)

	desc, err := e.wait(ctx, id)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrStatementTimeout) {
			e.cancel(ctx, id)
		}
		return nil, &ExecutionError{StatementID: id, Query: stmt.SQL, Msg: "statement did not finish", Err: err}
	}

	res = &Result{StatementID: id}
	if !aws.ToBool(desc.HasResultSet) {
		return res, nil
	}

	var token *string
	for {
		page, err := e.api.GetStatementResult(ctx, &redshiftdata.GetStatementResultInput{
			Id:        aws.String(id),
			NextToken: token,
		})
		if err != nil {
			return nil, &ExecutionError{StatementID: id, Query: stmt.SQL, Msg: "failed to fetch statement result", Err: err}
		}
		if res.Columns == nil {
			res.Columns = page.ColumnMetadata
		}
		res.Records = append(res.Records, page.Records...)

		token = page.NextToken
		if aws.ToString(token) == "" {
			break
		}
	}

	logger.Debug("Statement finished", "statementId", id, "rows", len(res.Records))
	return res, nil
}

func (e *Executor) executeInput(stmt Statement) *redshiftdata.ExecuteStatementInput {
	input := &redshiftdata.ExecuteStatementInput{
		Sql:         aws.String(stmt.SQL),
		Database:    aws.String(e.settings.Database),
		ClientToken: aws.String(uuid.NewString()),
		Parameters:  stmt.Parameters,
	}
	if e.settings.Serverless() {
		input.WorkgroupName = aws.String(e.settings.WorkgroupName)
		return input
	}
	input.ClusterIdentifier = aws.String(e.settings.ClusterIdentifier)
	if e.settings.DBUser != "" {
		input.DbUser = aws.String(e.settings.DBUser)
	}
	return input
}

// wait polls DescribeStatement until the statement leaves the running states.
func (e *Executor) wait(ctx context.Context, id string) (*redshiftdata.DescribeStatementOutput, error) {
	var finished *redshiftdata.DescribeStatementOutput

	operation := func() error {
		out, err := e.api.DescribeStatement(ctx, &redshiftdata.DescribeStatementInput{Id: aws.String(id)})
		if err != nil {
			return backoff.Permanent(err)
		}
		switch out.Status {
		case types.StatusStringFinished:
			finished = out
			return nil
		case types.StatusStringFailed, types.StatusStringAborted:
			return backoff.Permanent(&StatementError{Status: out.Status, Msg: aws.ToString(out.Error)})
		default:
			return errStatementPending
		}
	}

	notify := func(_ error, next time.Duration) {
		log.DefaultLogger.FromContext(ctx).Debug("Statement still running", "statementId", id, "nextPoll", next)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(e.newBackOff(), ctx), notify)
	if errors.Is(err, errStatementPending) {
		return nil, ErrStatementTimeout
	}
	return finished, err
}

// cancel stops a statement nobody waits for anymore. It runs detached from
// ctx's cancellation so the request still reaches Redshift.
func (e *Executor) cancel(ctx context.Context, id string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, err := e.api.CancelStatement(cctx, &redshiftdata.CancelStatementInput{Id: aws.String(id)}); err != nil {
		log.DefaultLogger.Warn("Failed to cancel statement", "statementId", id, "error", err)
		return
	}
	log.DefaultLogger.Debug("Statement cancelled", "statementId", id)
}
