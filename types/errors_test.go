package types

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsWriteError(t *testing.T) {
	require.True(t, IsWriteError(NewRevertErr("eth", "0x01", "status 0")))
	require.True(t, IsWriteError(fmt.Errorf("wrapped: %w", NewBroadcastErr("stx", "BadNonce"))))
	require.False(t, IsWriteError(ErrVaultNotFound))
	require.False(t, IsWriteError(NewOracleUnavailableErr("attest", errors.New("timeout"))))
}

func TestOutcomeMismatchErr(t *testing.T) {
	err := NewOutcomeMismatchErr("abc", "eth", big.NewInt(92), big.NewInt(93))

	var mismatch *OutcomeMismatchError
	require.True(t, errors.As(fmt.Errorf("closing: %w", err), &mismatch))
	require.Equal(t, "abc", mismatch.UUID)
	require.Equal(t, int64(93), mismatch.Actual.Int64())
}

func TestVaultCopy(t *testing.T) {
	v := &Vault{UUID: "abc", Outcome: big.NewInt(10)}
	cp := v.Copy()
	cp.Outcome.SetInt64(20)
	cp.Funded = true

	require.Equal(t, int64(10), v.Outcome.Int64())
	require.False(t, v.Funded)
}
