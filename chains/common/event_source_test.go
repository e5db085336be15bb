package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEventSource(t *testing.T) {
	src, err := ParseEventSource("dlclink:close-dlc:v1")
	require.NoError(t, err)
	require.Equal(t, "close-dlc", src.Function)
	require.True(t, src.Matches("v1"))
	require.False(t, src.Matches("v0-1"))
	require.Equal(t, "dlclink:close-dlc:v1", src.String())

	src, err = ParseEventSource("other:close-dlc:v1")
	require.NoError(t, err)
	require.False(t, src.Matches("v1"))

	_, err = ParseEventSource("close-dlc")
	require.Error(t, err)
}
