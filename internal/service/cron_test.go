package service_test

import (
	"testing"

	"github.com/CZERTAINLY/blastweb/internal/service"

	"github.com/stretchr/testify/require"
)

func TestParseCron(t *testing.T) {
	t.Parallel()

	cases := []struct {
		scenario string
		given    string
		then     string
	}{
		{"valid_5_fields", "*/15 * * * *", ""},
		{"macro_hourly", "@hourly", ""},
		{"macro_every", "@every 5m", ""},
		{"six_fields", "0 */2 * * * *", "expected exactly 5 fields, found 6: [0 */2 * * * *]"},
		{"invalid_token", "* * 32 * *", "end of range (32) above maximum (31): 32"},
		{"bad_every", "@every soon", `failed to parse duration @every soon: time: invalid duration "soon"`},
		{"empty", "  ", "empty cron expression"},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			err := service.ParseCron(tc.given)
			if tc.then != "" {
				require.EqualError(t, err, tc.then)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
