package httpcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRangeNoHeaderIsFullFile(t *testing.T) {
	r, err := ParseRange("", 100)
	require.NoError(t, err)
	require.False(t, r.Partial)
	require.Equal(t, int64(99), r.End)
	require.Equal(t, int64(100), r.ContentLength())
}

func TestParseRangeSuffix(t *testing.T) {
	r, err := ParseRange("bytes=-10", 100)
	require.NoError(t, err)
	require.True(t, r.Partial)
	require.Equal(t, int64(90), r.Start)
	require.Equal(t, int64(99), r.End)
	require.Equal(t, int64(10), r.ContentLength())
}

func TestParseRangeOpenEnded(t *testing.T) {
	r, err := ParseRange("bytes=50-", 100)
	require.NoError(t, err)
	require.Equal(t, int64(50), r.Start)
	require.Equal(t, int64(99), r.End)
}

func TestParseRangeExplicit(t *testing.T) {
	r, err := ParseRange("bytes=0-9", 100)
	require.NoError(t, err)
	require.Equal(t, int64(0), r.Start)
	require.Equal(t, int64(9), r.End)
	require.Equal(t, int64(10), r.ContentLength())
}

func TestParseRangeClampsEndPastLength(t *testing.T) {
	r, err := ParseRange("bytes=90-500", 100)
	require.NoError(t, err)
	require.Equal(t, int64(99), r.End)
	require.Equal(t, int64(10), r.ContentLength())
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	_, err := ParseRange("bytes=200-300", 100)
	require.Error(t, err)
	var target *ErrUnsatisfiable
	require.ErrorAs(t, err, &target)
	require.Equal(t, int64(100), target.Length)
}

func TestParseRangeMultiRangeFallsBackToFull(t *testing.T) {
	r, err := ParseRange("bytes=0-10,20-30", 100)
	require.NoError(t, err)
	require.False(t, r.Partial)
}

func TestParseRangeZeroLengthFile(t *testing.T) {
	r, err := ParseRange("bytes=0-10", 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), r.ContentLength())
}
