package chains

import (
	"context"

	"github.com/dlc-link/dlc-observer/types"
)

type MockAdapter struct {
	NameFunc                     func() string
	StartListeningFunc           func(ctx context.Context, sink chan<- *types.Event) error
	CheckAndGetVaultFunc         func(ctx context.Context, uuid string) (*types.VaultView, error)
	PostCreateVaultFunc          func(ctx context.Context, ev *types.Event) (*types.Receipt, error)
	SetVaultStatusFundedFunc     func(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error)
	SetVaultStatusPostClosedFunc func(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error)
}

func (m *MockAdapter) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}

	return ""
}

func (m *MockAdapter) StartListening(ctx context.Context, sink chan<- *types.Event) error {
	if m.StartListeningFunc != nil {
		return m.StartListeningFunc(ctx, sink)
	}

	return nil
}

func (m *MockAdapter) CheckAndGetVault(ctx context.Context, uuid string) (*types.VaultView, error) {
	if m.CheckAndGetVaultFunc != nil {
		return m.CheckAndGetVaultFunc(ctx, uuid)
	}

	return nil, nil
}

func (m *MockAdapter) PostCreateVault(ctx context.Context, ev *types.Event) (*types.Receipt, error) {
	if m.PostCreateVaultFunc != nil {
		return m.PostCreateVaultFunc(ctx, ev)
	}

	return &types.Receipt{}, nil
}

func (m *MockAdapter) SetVaultStatusFunded(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
	if m.SetVaultStatusFundedFunc != nil {
		return m.SetVaultStatusFundedFunc(ctx, uuid, btcTxID)
	}

	return &types.Receipt{}, nil
}

func (m *MockAdapter) SetVaultStatusPostClosed(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
	if m.SetVaultStatusPostClosedFunc != nil {
		return m.SetVaultStatusPostClosedFunc(ctx, uuid, btcTxID)
	}

	return &types.Receipt{}, nil
}
