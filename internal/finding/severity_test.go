package finding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	ordered := []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Score(), ordered[i-1].Score(),
			"%s must outrank %s", ordered[i], ordered[i-1])
	}
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.True(t, SeverityInfo.AtLeast(""))
}

func TestSeverityMax(t *testing.T) {
	assert.Equal(t, SeverityHigh, Max(SeverityLow, SeverityHigh))
	assert.Equal(t, SeverityHigh, Max(SeverityHigh, SeverityLow))
	assert.Equal(t, SeverityMedium, Max(SeverityMedium, SeverityMedium))
	assert.Equal(t, SeverityInfo, Max("", SeverityInfo))
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("critical")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, sev)

	_, err = ParseSeverity("catastrophic")
	assert.Error(t, err)

	_, err = ParseSeverity("")
	assert.Error(t, err)
}

func TestSeverityIsValid(t *testing.T) {
	for _, s := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Severity("severe").IsValid())
	assert.False(t, Severity("").IsValid())
}
