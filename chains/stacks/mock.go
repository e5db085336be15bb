package stacks

import (
	"context"

	"github.com/dlc-link/dlc-observer/chains/stacks/clarity"
)

type MockClient struct {
	GetTransactionFunc func(ctx context.Context, txID string) (*Transaction, error)
	CallReadOnlyFunc   func(ctx context.Context, contractID, function, sender string, args ...clarity.Value) (clarity.Value, error)
	GetNonceFunc       func(ctx context.Context, principal string) (uint64, error)
	BroadcastFunc      func(ctx context.Context, raw []byte) (string, error)
	GetNftHoldingsFunc func(ctx context.Context, principal, assetIdentifier string) ([]NftHolding, error)
}

func (c *MockClient) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	if c.GetTransactionFunc != nil {
		return c.GetTransactionFunc(ctx, txID)
	}

	return nil, nil
}

func (c *MockClient) CallReadOnly(ctx context.Context, contractID, function, sender string, args ...clarity.Value) (clarity.Value, error) {
	if c.CallReadOnlyFunc != nil {
		return c.CallReadOnlyFunc(ctx, contractID, function, sender, args...)
	}

	return clarity.None{}, nil
}

func (c *MockClient) GetNonce(ctx context.Context, principal string) (uint64, error) {
	if c.GetNonceFunc != nil {
		return c.GetNonceFunc(ctx, principal)
	}

	return 0, nil
}

func (c *MockClient) Broadcast(ctx context.Context, raw []byte) (string, error) {
	if c.BroadcastFunc != nil {
		return c.BroadcastFunc(ctx, raw)
	}

	return "", nil
}

func (c *MockClient) GetNftHoldings(ctx context.Context, principal, assetIdentifier string) ([]NftHolding, error) {
	if c.GetNftHoldingsFunc != nil {
		return c.GetNftHoldingsFunc(ctx, principal, assetIdentifier)
	}

	return nil, nil
}

type MockSocket struct {
	RunFunc         func(ctx context.Context, out chan<- *Notification)
	SubscribeFunc   func(address string) error
	UnsubscribeFunc func(address string) error
}

func (s *MockSocket) Run(ctx context.Context, out chan<- *Notification) {
	if s.RunFunc != nil {
		s.RunFunc(ctx, out)
	}
}

func (s *MockSocket) Subscribe(address string) error {
	if s.SubscribeFunc != nil {
		return s.SubscribeFunc(address)
	}

	return nil
}

func (s *MockSocket) Unsubscribe(address string) error {
	if s.UnsubscribeFunc != nil {
		return s.UnsubscribeFunc(address)
	}

	return nil
}

type MockSigner struct {
	SignContractCallFunc func(ctx context.Context, call *ContractCallRequest) (*SignedTx, error)
}

func (s *MockSigner) SignContractCall(ctx context.Context, call *ContractCallRequest) (*SignedTx, error) {
	if s.SignContractCallFunc != nil {
		return s.SignContractCallFunc(ctx, call)
	}

	return &SignedTx{Tx: "0x00"}, nil
}
