package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"
	"github.com/grafana/grafana-plugin-sdk-go/data"
)

// timeLayouts are the textual forms the Data API uses for date and
// timestamp columns.
var timeLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// fieldType maps a Redshift column type to a nullable frame field type.
func fieldType(col types.ColumnMetadata) data.FieldType {
	switch strings.ToLower(aws.ToString(col.TypeName)) {
	case "int2", "int4", "int8", "smallint", "integer", "bigint":
		return data.FieldTypeNullableInt64
	case "float4", "float8", "real", "double precision", "numeric", "decimal":
		return data.FieldTypeNullableFloat64
	case "bool", "boolean":
		return data.FieldTypeNullableBool
	case "date", "timestamp", "timestamptz", "timestamp without time zone", "timestamp with time zone":
		return data.FieldTypeNullableTime
	default:
		return data.FieldTypeNullableString
	}
}

// convert turns one record field into a value for a field of type ft. A nil
// return means SQL NULL.
func convert(ft data.FieldType, f types.Field) (interface{}, error) {
	if f == nil {
		return nil, nil
	}
	if n, ok := f.(*types.FieldMemberIsNull); ok && n.Value {
		return nil, nil
	}

	switch ft {
	case data.FieldTypeNullableInt64:
		switch v := f.(type) {
		case *types.FieldMemberLongValue:
			val := v.Value
			return &val, nil
		case *types.FieldMemberDoubleValue:
			i := int64(v.Value)
			return &i, nil
		case *types.FieldMemberStringValue:
			i, err := strconv.ParseInt(v.Value, 10, 64)
			if err != nil {
				return nil, err
			}
			return &i, nil
		}
	case data.FieldTypeNullableFloat64:
		switch v := f.(type) {
		case *types.FieldMemberDoubleValue:
			val := v.Value
			return &val, nil
		case *types.FieldMemberLongValue:
			fl := float64(v.Value)
			return &fl, nil
		case *types.FieldMemberStringValue:
			fl, err := strconv.ParseFloat(v.Value, 64)
			if err != nil {
				return nil, err
			}
			return &fl, nil
		}
	case data.FieldTypeNullableBool:
		switch v := f.(type) {
		case *types.FieldMemberBooleanValue:
			val := v.Value
			return &val, nil
		case *types.FieldMemberStringValue:
			b, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil, err
			}
			return &b, nil
		}
	case data.FieldTypeNullableTime:
		if v, ok := f.(*types.FieldMemberStringValue); ok {
			t, err := parseTime(v.Value)
			if err != nil {
				return nil, err
			}
			return &t, nil
		}
	case data.FieldTypeNullableString:
		s := stringValue(f)
		return &s, nil
	}
	return nil, fmt.Errorf("cannot convert %T to %s", f, ft)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func stringValue(f types.Field) string {
	switch v := f.(type) {
	case *types.FieldMemberStringValue:
		return v.Value
	case *types.FieldMemberLongValue:
		return strconv.FormatInt(v.Value, 10)
	case *types.FieldMemberDoubleValue:
		return strconv.FormatFloat(v.Value, 'f', -1, 64)
	case *types.FieldMemberBooleanValue:
		return strconv.FormatBool(v.Value)
	case *types.FieldMemberBlobValue:
		return string(v.Value)
	default:
		return ""
	}
}
