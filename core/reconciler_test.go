package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dlc-link/dlc-observer/chains"
	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/core/oracle"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

const testFundingTx = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

type reconcilerEnv struct {
	reconciler *defaultReconciler
	registry   VaultRegistry
	adapter    *chains.MockAdapter
	writes     *atomic.Int32
	status     types.VaultStatus
}

func newReconcilerEnv(t *testing.T, candidates ...*types.ReconciliationCandidate) *reconcilerEnv {
	env := &reconcilerEnv{
		registry: NewVaultRegistry(nil),
		writes:   atomic.NewInt32(0),
		status:   types.VaultStatusReady,
	}

	env.adapter = &chains.MockAdapter{
		CheckAndGetVaultFunc: func(ctx context.Context, uuid string) (*types.VaultView, error) {
			return &types.VaultView{UUID: uuid, Chain: "eth", ContractAddress: "0xc0", Status: env.status}, nil
		},
		SetVaultStatusFundedFunc: func(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
			require.Equal(t, testFundingTx, btcTxID)
			env.writes.Inc()
			return &types.Receipt{TxHash: "0x03"}, nil
		},
	}

	attestor := &oracle.MockAttestor{
		GetConfirmedFundingEventsFunc: func(ctx context.Context) ([]*types.ReconciliationCandidate, error) {
			// Each sweep gets fresh copies.
			ret := make([]*types.ReconciliationCandidate, len(candidates))
			for i, c := range candidates {
				cp := *c
				ret[i] = &cp
			}
			return ret, nil
		},
	}

	cfg := &config.Observer{SuppressionWindow: 60 * 60}
	env.reconciler = NewReconciler(cfg, attestor, env.registry,
		map[string]chains.Adapter{"eth": env.adapter}).(*defaultReconciler)

	return env
}

func candidate(chain string) *types.ReconciliationCandidate {
	return &types.ReconciliationCandidate{UUID: testUUID, ChainName: chain, FundingTxID: testFundingTx}
}

func TestReconciler_FundedOnce(t *testing.T) {
	// The attestor reports the same uuid twice in one batch.
	env := newReconcilerEnv(t, candidate("eth"), candidate("eth"))

	result, err := env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Candidates)
	require.Equal(t, 1, result.Written)
	require.Equal(t, int32(1), env.writes.Load())

	v, ok := env.registry.Find(testUUID)
	require.True(t, ok)
	require.True(t, v.Funded)
	require.False(t, v.FundedRequested)
	require.Equal(t, "eth", v.Chain)
	require.Equal(t, "0xc0", v.ContractAddress)

	// Past the suppression window, the chain still lags and reports the vault as ready.
	env.reconciler.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	result, err = env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Written)
	require.Equal(t, 2, result.Decisions[DecisionBusy])
	require.Equal(t, int32(1), env.writes.Load())
}

func TestReconciler_ConcurrentSweeps(t *testing.T) {
	env := newReconcilerEnv(t, candidate("eth"))

	wg := &sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.reconciler.Sweep(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), env.writes.Load())
}

func TestReconciler_Suppression(t *testing.T) {
	env := newReconcilerEnv(t, candidate("eth"))
	failing := atomic.NewBool(true)
	env.adapter.SetVaultStatusFundedFunc = func(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
		env.writes.Inc()
		if failing.Load() {
			return nil, errors.New("rpc down")
		}
		return &types.Receipt{}, nil
	}

	result, err := env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)

	v, _ := env.registry.Find(testUUID)
	require.False(t, v.Funded)
	require.False(t, v.FundedRequested)

	// Within the window the failed uuid is not retried.
	failing.Store(false)
	result, err = env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Decisions[DecisionSuppressed])
	require.Equal(t, int32(1), env.writes.Load())

	env.reconciler.now = func() time.Time { return time.Now().Add(61 * time.Minute) }
	result, err = env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Written)
	require.Equal(t, int32(2), env.writes.Load())

	v, _ = env.registry.Find(testUUID)
	require.True(t, v.Funded)
}

func TestReconciler_ForceCheckIgnoresSuppression(t *testing.T) {
	env := newReconcilerEnv(t, candidate("eth"))
	env.adapter.SetVaultStatusFundedFunc = func(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
		if env.writes.Inc() == 1 {
			return nil, errors.New("rpc down")
		}
		return &types.Receipt{}, nil
	}

	_, err := env.reconciler.Sweep(context.Background())
	require.NoError(t, err)

	result, err := env.reconciler.ForceCheck(context.Background(), testUUID[2:])
	require.NoError(t, err)
	require.Equal(t, 1, result.Written)

	_, err = env.reconciler.ForceCheck(context.Background(), "0x01")
	require.ErrorIs(t, err, types.ErrVaultNotFound)
}

func TestReconciler_Skips(t *testing.T) {
	invalid := candidate("eth")
	invalid.FundingTxID = "not-a-txid"

	env := newReconcilerEnv(t, candidate("btc"), invalid)
	result, err := env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Decisions[DecisionUnknownChain])
	require.Equal(t, 1, result.Decisions[DecisionInvalid])
	require.Equal(t, int32(0), env.writes.Load())
	require.Empty(t, env.registry.All())

	env = newReconcilerEnv(t, candidate("eth"))
	env.adapter.CheckAndGetVaultFunc = func(ctx context.Context, uuid string) (*types.VaultView, error) {
		return nil, nil
	}
	result, err = env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Decisions[DecisionAbsent])
	require.Equal(t, int32(0), env.writes.Load())
}

func TestReconciler_FundedOnChain(t *testing.T) {
	env := newReconcilerEnv(t, candidate("eth"))
	env.status = types.VaultStatusFunded

	result, err := env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Decisions[DecisionFundedOnChain])
	require.Equal(t, int32(0), env.writes.Load())

	v, ok := env.registry.Find(testUUID)
	require.True(t, ok)
	require.True(t, v.Funded)
	require.Equal(t, "eth", v.Chain)
	require.Equal(t, "0xc0", v.ContractAddress)
}

func TestReconciler_ChainConflict(t *testing.T) {
	env := newReconcilerEnv(t, candidate("eth"))
	env.registry.Upsert(&types.Vault{UUID: testUUID, Chain: "stx", ContractAddress: "SP.manager"})

	result, err := env.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Decisions[DecisionBusy])
	require.Equal(t, int32(0), env.writes.Load())

	v, _ := env.registry.Find(testUUID)
	require.Equal(t, "stx", v.Chain)
	require.False(t, v.FundedRequested)
}

func TestReconciler_AttestorDown(t *testing.T) {
	attestor := &oracle.MockAttestor{
		GetConfirmedFundingEventsFunc: func(ctx context.Context) ([]*types.ReconciliationCandidate, error) {
			return nil, types.NewOracleUnavailableErr(oracle.OpGetFundingEvents, errors.New("down"))
		},
	}
	r := NewReconciler(&config.Observer{}, attestor, NewVaultRegistry(nil), map[string]chains.Adapter{})

	_, err := r.Sweep(context.Background())
	var unavailable *types.OracleUnavailableError
	require.ErrorAs(t, err, &unavailable)
}
