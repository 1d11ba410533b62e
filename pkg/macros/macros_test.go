package macros

import (
	"testing"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/data/sqlutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redshift-grafana-plugin/pkg/models"
)

var testRange = backend.TimeRange{
	From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
}

func TestMacroFuncs(t *testing.T) {
	q := &sqlutil.Query{TimeRange: testRange, Interval: 30 * time.Second}

	tests := []struct {
		name     string
		fn       sqlutil.MacroFunc
		args     []string
		expected string
		errMsg   string
	}{
		{
			name:     "timeFilter",
			fn:       timeFilter,
			args:     []string{"created_at"},
			expected: "created_at BETWEEN '2024-01-01 00:00:00' AND '2024-01-01 01:00:00'",
		},
		{
			name:   "timeFilter without column",
			fn:     timeFilter,
			args:   []string{""},
			errMsg: "expected 1 argument",
		},
		{
			name:     "timeFrom",
			fn:       timeFrom,
			expected: "'2024-01-01 00:00:00'",
		},
		{
			name:     "timeTo",
			fn:       timeTo,
			expected: "'2024-01-01 01:00:00'",
		},
		{
			name:     "timeEpoch",
			fn:       timeEpoch,
			args:     []string{"ts"},
			expected: `extract(epoch from ts) AS "time"`,
		},
		{
			name:     "unixEpochFilter",
			fn:       unixEpochFilter,
			args:     []string{"epoch_s"},
			expected: "epoch_s >= 1704067200 AND epoch_s <= 1704070800",
		},
		{
			name:     "timeGroup with literal interval",
			fn:       timeGroup,
			args:     []string{"ts", " '5m'"},
			expected: "timestamp 'epoch' + floor(extract(epoch from ts)/300)*300 * interval '1 second'",
		},
		{
			name:     "timeGroup with dashboard interval",
			fn:       timeGroup,
			args:     []string{"ts", "$__interval"},
			expected: "timestamp 'epoch' + floor(extract(epoch from ts)/30)*30 * interval '1 second'",
		},
		{
			name:   "timeGroup missing interval",
			fn:     timeGroup,
			args:   []string{"ts"},
			errMsg: "expected 2 arguments",
		},
		{
			name:   "timeGroup bad interval",
			fn:     timeGroup,
			args:   []string{"ts", "often"},
			errMsg: "invalid interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(q, tt.args)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				var mErr *MacroError
				assert.ErrorAs(t, err, &mErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTimeGroup_SubSecondInterval(t *testing.T) {
	got, err := timeGroup(&sqlutil.Query{Interval: 10 * time.Millisecond}, []string{"ts", "$__interval"})
	require.NoError(t, err)
	assert.Contains(t, got, "/1)*1")
}

func TestInterpolate(t *testing.T) {
	q := models.ApplyDefaults(models.Query{
		RawSQL: "SELECT count(*) FROM sales WHERE $__timeFilter(sold_at)",
	})
	q.TimeRange = testRange

	got, err := Interpolate(&q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM sales WHERE sold_at BETWEEN '2024-01-01 00:00:00' AND '2024-01-01 01:00:00'", got)
}

func TestInterpolate_NoMacros(t *testing.T) {
	q := models.ApplyDefaults(models.Query{RawSQL: "SELECT 1"})
	got, err := Interpolate(&q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)
}

func TestDefinitions(t *testing.T) {
	require.NotEmpty(t, Definitions)
	assert.Equal(t, "$__timeFilter", Definitions[0].Label())
	assert.Equal(t, "$__timeGroup", Definitions[1].Label())

	for _, d := range Definitions {
		_, ok := Macros[d.Name]
		assert.True(t, ok, "macro %s has no implementation", d.Name)
	}
}
