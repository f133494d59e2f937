package mbti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsAllCodes(t *testing.T) {
	for _, m := range All {
		parsed, err := Parse(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}

func TestParseNormalizesCase(t *testing.T) {
	parsed, err := Parse("  infp ")
	require.NoError(t, err)
	assert.Equal(t, INFP, parsed)
}

func TestParseRejectsUnknownCodes(t *testing.T) {
	for _, raw := range []string{"", "ABCD", "INF", "INFPX", "XXXX"} {
		_, err := Parse(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(ENTP))
	assert.False(t, IsValid(MBTI("QQQQ")))
	assert.False(t, IsValid(MBTI("")))
}
