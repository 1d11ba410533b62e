// Package schema lists the schemas, tables and columns of the configured
// database so the query editor can offer them.
package schema

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"

	"redshift-grafana-plugin/pkg/api/query"
)

// systemSchemas are never offered to query authors.
var systemSchemas = []string{"information_schema", "pg_catalog", "pg_internal", "pg_auto_copy"}

// Column is one column of a table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SchemasStatement lists the user schemas.
func SchemasStatement() (query.Statement, error) {
	return toStatement(psq.
		Select("schema_name").
		From("information_schema.schemata").
		Where(sq.NotEq{"schema_name": systemSchemas}).
		Where(sq.NotLike{"schema_name": "pg_temp_%"}).
		OrderBy("schema_name"))
}

// TablesStatement lists the tables and views of a schema.
func TablesStatement(schema string) (query.Statement, error) {
	if schema == "" {
		return query.Statement{}, fmt.Errorf("schema cannot be empty")
	}
	return toStatement(psq.
		Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": schema}).
		OrderBy("table_name"))
}

// ColumnsStatement lists the columns of a table in declaration order.
func ColumnsStatement(schema, table string) (query.Statement, error) {
	if schema == "" || table == "" {
		return query.Statement{}, fmt.Errorf("schema and table cannot be empty")
	}
	return toStatement(psq.
		Select("column_name", "data_type").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": schema}).
		Where(sq.Eq{"table_name": table}).
		OrderBy("ordinal_position"))
}

// Service runs the catalogue statements.
type Service struct {
	executor query.StatementExecutor
}

// NewService creates a schema service on top of executor.
func NewService(executor query.StatementExecutor) *Service {
	return &Service{executor: executor}
}

// Schemas returns the user schema names.
func (s *Service) Schemas(ctx context.Context) ([]string, error) {
	stmt, err := SchemasStatement()
	if err != nil {
		return nil, err
	}
	return s.firstColumn(ctx, stmt)
}

// Tables returns the table names of schema.
func (s *Service) Tables(ctx context.Context, schema string) ([]string, error) {
	stmt, err := TablesStatement(schema)
	if err != nil {
		return nil, err
	}
	return s.firstColumn(ctx, stmt)
}

// Columns returns the columns of schema.table.
func (s *Service) Columns(ctx context.Context, schema, table string) ([]Column, error) {
	stmt, err := ColumnsStatement(schema, table)
	if err != nil {
		return nil, err
	}
	res, err := s.run(ctx, stmt)
	if err != nil {
		return nil, err
	}

	out := make([]Column, 0, len(res.Records))
	for _, rec := range res.Records {
		if len(rec) < 2 {
			continue
		}
		out = append(out, Column{Name: text(rec[0]), Type: text(rec[1])})
	}
	return out, nil
}

func (s *Service) firstColumn(ctx context.Context, stmt query.Statement) ([]string, error) {
	res, err := s.run(ctx, stmt)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if len(rec) == 0 {
			continue
		}
		out = append(out, text(rec[0]))
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, stmt query.Statement) (*query.Result, error) {
	if s == nil || s.executor == nil {
		return nil, fmt.Errorf("schema service is not initialized")
	}
	res, err := s.executor.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &query.Result{}, nil
	}
	return res, nil
}

func text(f types.Field) string {
	if v, ok := f.(*types.FieldMemberStringValue); ok {
		return v.Value
	}
	return ""
}
