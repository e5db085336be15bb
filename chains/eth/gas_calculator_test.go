package eth

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const oneGwei = int64(1_000_000_000)

func TestLegacyGasPrice(t *testing.T) {
	client := &MockEthClient{
		SuggestGasPriceFunc: func(ctx context.Context) (*big.Int, error) {
			return big.NewInt(oneGwei * 10), nil
		},
	}

	updateInterval := time.Millisecond * 500
	gasCal := newGasCalculator("eth", client, updateInterval)
	gasCal.Start()

	require.Equal(t, big.NewInt(oneGwei*10), gasCal.GetGasPrice())
	client.SuggestGasPriceFunc = func(ctx context.Context) (*big.Int, error) {
		return big.NewInt(oneGwei * 12), nil
	}

	// Gas price is still the old price
	require.Equal(t, big.NewInt(oneGwei*10), gasCal.GetGasPrice())
	time.Sleep(updateInterval)

	require.Equal(t, big.NewInt(oneGwei*12), gasCal.GetGasPrice())
}

func TestGasPrice_FallbackOnError(t *testing.T) {
	client := &MockEthClient{
		SuggestGasPriceFunc: func(ctx context.Context) (*big.Int, error) {
			return nil, errors.New("rpc down")
		},
	}

	gasCal := newGasCalculator("eth", client, time.Minute)
	gasCal.Start()

	require.Equal(t, big.NewInt(DefaultGasPrice), gasCal.GetGasPrice())
	require.Equal(t, uint64(31_000), gasCal.GetGasLimit(21_000))
}
