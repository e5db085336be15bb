package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type MockEthClient struct {
	StartFunc               func()
	CloseFunc               func()
	ChainIDFunc             func(ctx context.Context) (*big.Int, error)
	BlockNumberFunc         func(ctx context.Context) (uint64, error)
	FilterLogsFunc          func(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	SubscribeFilterLogsFunc func(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error)
	CallContractFunc        func(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGasFunc         func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPriceFunc     func(ctx context.Context) (*big.Int, error)
	PendingNonceAtFunc      func(ctx context.Context, account common.Address) (uint64, error)
	SendTransactionFunc     func(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceiptFunc  func(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

func (c *MockEthClient) Start() {
	if c.StartFunc != nil {
		c.StartFunc()
	}
}

func (c *MockEthClient) Close() {
	if c.CloseFunc != nil {
		c.CloseFunc()
	}
}

func (c *MockEthClient) ChainID(ctx context.Context) (*big.Int, error) {
	if c.ChainIDFunc != nil {
		return c.ChainIDFunc(ctx)
	}

	return big.NewInt(1), nil
}

func (c *MockEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	if c.BlockNumberFunc != nil {
		return c.BlockNumberFunc(ctx)
	}

	return 0, nil
}

func (c *MockEthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	if c.FilterLogsFunc != nil {
		return c.FilterLogsFunc(ctx, q)
	}

	return nil, nil
}

func (c *MockEthClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error) {
	if c.SubscribeFilterLogsFunc != nil {
		return c.SubscribeFilterLogsFunc(ctx, q, ch)
	}

	return nil, nil
}

func (c *MockEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if c.CallContractFunc != nil {
		return c.CallContractFunc(ctx, msg, blockNumber)
	}

	return nil, nil
}

func (c *MockEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if c.EstimateGasFunc != nil {
		return c.EstimateGasFunc(ctx, msg)
	}

	return 0, nil
}

func (c *MockEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if c.SuggestGasPriceFunc != nil {
		return c.SuggestGasPriceFunc(ctx)
	}

	return nil, nil
}

func (c *MockEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if c.PendingNonceAtFunc != nil {
		return c.PendingNonceAtFunc(ctx, account)
	}

	return 0, nil
}

func (c *MockEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	if c.SendTransactionFunc != nil {
		return c.SendTransactionFunc(ctx, tx)
	}

	return nil
}

func (c *MockEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	if c.TransactionReceiptFunc != nil {
		return c.TransactionReceiptFunc(ctx, txHash)
	}

	return nil, nil
}

// mockSubscription is a ethereum.Subscription driven by tests.
type mockSubscription struct {
	errCh chan error
}

func newMockSubscription() *mockSubscription {
	return &mockSubscription{errCh: make(chan error, 1)}
}

func (s *mockSubscription) Unsubscribe() {}

func (s *mockSubscription) Err() <-chan error {
	return s.errCh
}
