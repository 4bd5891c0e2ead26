package dateutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"2024-01-01T00:00:00Z":      "Jan 01, 2024",
		"2023-11-24T08:15:42.123Z":  "Nov 24, 2023",
		"2022-07-09T23:59:59+02:00": "Jul 09, 2022",
		"2021-03-05":                "Mar 05, 2021",
		"":                          InvalidDate,
		"yesterday":                 InvalidDate,
		"2024-13-01T00:00:00Z":      InvalidDate,
	}

	for in, want := range cases {
		assert.Equal(t, want, FormatDate(in), "input %q", in)
	}
}

func TestParse_OrdersByInstant(t *testing.T) {
	a, ok := Parse("2024-01-01T00:00:00Z")
	assert.True(t, ok)
	b, ok := Parse("2024-01-01T01:00:00.000Z")
	assert.True(t, ok)
	assert.True(t, b.After(a))
}
