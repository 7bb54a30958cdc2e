package ident_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebuild/tracebuild/internal/ident"
)

func TestNewBuildID_Shape(t *testing.T) {
	id, err := ident.NewBuildID()
	require.NoError(t, err)

	s := id.String()
	assert.Len(t, s, ident.BuildIDHexLen)
	assert.Equal(t, strings.ToLower(s), s, "encoding must be lowercase hex")
	for _, r := range s {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestNewBuildID_Distinct(t *testing.T) {
	a, err := ident.NewBuildID()
	require.NoError(t, err)
	b, err := ident.NewBuildID()
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), b.String())
}

func TestNewBuildID_NoCollisions(t *testing.T) {
	// 10k draws from a 128-bit trace space sit far below the birthday bound;
	// any collision indicates a broken generator.
	seen := make(map[string]struct{}, 10_000)
	for i := 0; i < 10_000; i++ {
		id, err := ident.NewBuildID()
		require.NoError(t, err)
		s := id.String()
		_, dup := seen[s]
		require.False(t, dup, "collision after %d draws: %s", i, s)
		seen[s] = struct{}{}
	}
}

func TestParseBuildID_Roundtrip(t *testing.T) {
	id, err := ident.NewBuildID()
	require.NoError(t, err)

	parsed, err := ident.ParseBuildID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseBuildID_WrongLength(t *testing.T) {
	_, err := ident.ParseBuildID(strings.Repeat("a", 47))
	require.ErrorIs(t, err, ident.ErrInvalid)

	_, err = ident.ParseBuildID(strings.Repeat("a", 49))
	require.ErrorIs(t, err, ident.ErrInvalid)

	_, err = ident.ParseBuildID("")
	require.ErrorIs(t, err, ident.ErrInvalid)
}

func TestParseBuildID_NonHex(t *testing.T) {
	_, err := ident.ParseBuildID(strings.Repeat("g", ident.BuildIDHexLen))
	require.ErrorIs(t, err, ident.ErrInvalid)
}

func TestParseBuildID_AllZeroAccepted(t *testing.T) {
	id, err := ident.ParseBuildID(strings.Repeat("0", ident.BuildIDHexLen))
	require.NoError(t, err)
	assert.True(t, id.Trace.IsZero())
	assert.True(t, id.Span.IsZero())
}

func TestParseStepID_UsesSpanHalf(t *testing.T) {
	id, err := ident.NewBuildID()
	require.NoError(t, err)

	step, err := ident.ParseStepID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id.Span, step.Span)
}

func TestParseSpanID_Roundtrip(t *testing.T) {
	span, err := ident.ParseSpanID("00f067aa0ba902b7")
	require.NoError(t, err)
	assert.Equal(t, "00f067aa0ba902b7", span.String())
}

func TestParseTraceID_Roundtrip(t *testing.T) {
	trace, err := ident.ParseTraceID("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", trace.String())
}
