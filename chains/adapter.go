package chains

import (
	"context"

	"github.com/dlc-link/dlc-observer/types"
)

// Adapter is everything the observer needs from one chain. Transaction construction (argument
// order, fees, signing, nonces) stays behind this interface.
type Adapter interface {
	Name() string

	// StartListening subscribes to the manager contract and pushes decoded events to sink until ctx
	// is done. Disconnects are retried inside the adapter.
	StartListening(ctx context.Context, sink chan<- *types.Event) error

	// CheckAndGetVault returns nil, nil when the chain has no vault with this uuid.
	CheckAndGetVault(ctx context.Context, uuid string) (*types.VaultView, error)

	// PostCreateVault accepts a created vault on chain.
	PostCreateVault(ctx context.Context, ev *types.Event) (*types.Receipt, error)

	SetVaultStatusFunded(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error)
	SetVaultStatusPostClosed(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error)
}
