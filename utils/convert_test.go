package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeOutcome(t *testing.T) {
	require.Equal(t, big.NewInt(92), NormalizeOutcome(big.NewInt(9268), 2))
	require.Equal(t, big.NewInt(9268), NormalizeOutcome(big.NewInt(9268), 0))
	require.Equal(t, big.NewInt(1), NormalizeOutcome(big.NewInt(99), 2))
	require.Equal(t, big.NewInt(0), NormalizeOutcome(big.NewInt(49), 2))
	require.Equal(t, big.NewInt(93), NormalizeOutcome(big.NewInt(9250), 2))
	require.Equal(t, big.NewInt(92), NormalizeOutcome(big.NewInt(9249), 2))

	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	expected, _ := new(big.Int).SetString("1234567890123456789012345679", 10)
	require.Equal(t, expected, NormalizeOutcome(huge, 2))

	require.Nil(t, NormalizeOutcome(nil, 2))
}

func TestOutcomesMatch(t *testing.T) {
	require.True(t, OutcomesMatch(big.NewInt(9268), big.NewInt(92), 2))
	require.False(t, OutcomesMatch(big.NewInt(9268), big.NewInt(93), 2))
	require.True(t, OutcomesMatch(big.NewInt(10000), big.NewInt(100), 2))
	require.True(t, OutcomesMatch(big.NewInt(9250), big.NewInt(93), 2))
	require.False(t, OutcomesMatch(big.NewInt(9250), big.NewInt(92), 2))
	require.False(t, OutcomesMatch(nil, big.NewInt(100), 2))
}

func TestFormatMaturation(t *testing.T) {
	require.Equal(t, "2023-03-01T00:00:00Z", FormatMaturation(1677628800, 0))
	require.Equal(t, "2023-02-28T23:00:00Z", FormatMaturation(1677628800, 3600))
}

func TestParseOutcome(t *testing.T) {
	v, err := ParseOutcome("9268")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(9268), v)

	_, err = ParseOutcome("92.5")
	require.Error(t, err)

	_, err = ParseOutcome("-1")
	require.Error(t, err)
}
