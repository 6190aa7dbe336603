package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "de", "es"}, c.Locales())

	for _, tag := range c.Locales() {
		table := c.Match(tag)
		assert.Equal(t, tag, table.Tag)
		assert.NotEmpty(t, table.Preamble, tag)
		assert.NotEmpty(t, table.Examples, tag)
	}
}

func TestMatch(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	tests := []struct {
		locale string
		want   string
	}{
		{"en", "en"},
		{"de", "de"},
		{"de-AT", "de"},
		{"es-MX", "es"},
		{"fr, de;q=0.8", "de"},
		{"ja", "en"},
		{"", "en"},
		{"not a locale!!", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Match(tt.locale).Tag)
		})
	}
}

func TestRenderSummary(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	got, err := c.Match("en").RenderSummary(SummaryData{
		Username: "ana",
		Period:   "2024-03-01 to 2024-03-31",
		Metrics:  []SummaryMetric{{Name: "score", Value: "91.5"}, {Name: "calls", Value: "12"}},
	})
	require.NoError(t, err)
	assert.Contains(t, got, "agent ana")
	assert.Contains(t, got, "- score: 91.5")
	assert.Contains(t, got, "- calls: 12")
}

func TestParseTableRejectsBadRole(t *testing.T) {
	_, err := parseTable("xx", []byte("preamble: hi\nexamples:\n  - role: system\n    text: nope\n"))
	assert.Error(t, err)
}
