package schema

import (
	"bytes"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"

	"redshift-grafana-plugin/pkg/api/query"
)

// Named is a squirrel placeholder format producing the :p1, :p2, ...
// parameters the Data API binds by name. A doubled ?? is an escaped ?.
var Named sq.PlaceholderFormat = namedFormat{}

type namedFormat struct{}

func (namedFormat) ReplacePlaceholders(sql string) (string, error) {
	buf := &bytes.Buffer{}
	i := 0
	for {
		p := strings.Index(sql, "?")
		if p == -1 {
			break
		}

		if len(sql[p:]) > 1 && sql[p:p+2] == "??" {
			buf.WriteString(sql[:p])
			buf.WriteString("?")
			sql = sql[p+2:]
			continue
		}

		i++
		buf.WriteString(sql[:p])
		fmt.Fprintf(buf, ":%s", paramName(i))
		sql = sql[p+1:]
	}
	buf.WriteString(sql)
	return buf.String(), nil
}

func paramName(i int) string {
	return fmt.Sprintf("p%d", i)
}

// psq builds statements with Named placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(Named)

// toStatement renders b and binds its arguments as named parameters.
func toStatement(b sq.Sqlizer) (query.Statement, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return query.Statement{}, fmt.Errorf("could not build statement: %w", err)
	}

	params := make([]types.SqlParameter, 0, len(args))
	for i, arg := range args {
		params = append(params, types.SqlParameter{
			Name:  aws.String(paramName(i + 1)),
			Value: aws.String(fmt.Sprint(arg)),
		})
	}
	return query.Statement{SQL: sql, Parameters: params}, nil
}
