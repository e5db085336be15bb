package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dlc-link/dlc-observer/chains"
	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/core/oracle"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"github.com/sisu-network/lib/log"
	"go.uber.org/atomic"
)

const (
	DecisionWrite         = "write"
	DecisionInvalid       = "invalid_txid"
	DecisionSuppressed    = "suppressed"
	DecisionUnknownChain  = "unknown_chain"
	DecisionAbsent        = "absent"
	DecisionFundedOnChain = "funded_on_chain"
	DecisionBusy          = "busy"
	DecisionFailed        = "failed"
)

// Reconciler periodically asks the attestor for confirmed bitcoin funding transactions and makes
// sure each one has been reported to its vault's chain.
type Reconciler interface {
	Start(ctx context.Context)
	Sweep(ctx context.Context) (*SweepResult, error)
	// ForceCheck reconciles a single uuid, ignoring the suppression window.
	ForceCheck(ctx context.Context, uuid string) (*SweepResult, error)
}

type SweepResult struct {
	ID         string         `json:"id"`
	Candidates int            `json:"candidates"`
	Written    int            `json:"written"`
	Failed     int            `json:"failed"`
	Decisions  map[string]int `json:"decisions"`
}

func newSweepResult(candidates int) *SweepResult {
	return &SweepResult{
		ID:         uuid.NewString(),
		Candidates: candidates,
		Decisions:  make(map[string]int),
	}
}

type defaultReconciler struct {
	cfg      *config.Observer
	attestor oracle.Attestor
	registry VaultRegistry
	adapters map[string]chains.Adapter

	// uuid -> time.Time of the last funded write attempt.
	processed *lru.Cache
	lock      *sync.Mutex
	now       func() time.Time

	running *atomic.Bool
}

func NewReconciler(cfg *config.Observer, attestor oracle.Attestor, registry VaultRegistry,
	adapters map[string]chains.Adapter) Reconciler {
	size := cfg.SuppressionCache
	if size <= 0 {
		size = config.DefaultSuppressionCache
	}

	return &defaultReconciler{
		cfg:       cfg,
		attestor:  attestor,
		registry:  registry,
		adapters:  adapters,
		processed: lru.New(size),
		lock:      &sync.Mutex{},
		now:       time.Now,
		running:   atomic.NewBool(false),
	}
}

func (r *defaultReconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileIntervalDuration())
	defer ticker.Stop()

	log.Info("Starting reconciliation loop, interval = ", r.cfg.ReconcileIntervalDuration())
	for {
		select {
		case <-ctx.Done():
			log.Info("Reconciliation loop stopped")
			return
		case <-ticker.C:
			// A slow sweep must not overlap with the next tick.
			if !r.running.CAS(false, true) {
				log.Verbose("Previous sweep still running, skipping tick")
				continue
			}

			if _, err := r.Sweep(ctx); err != nil {
				log.Warnf("Reconciliation sweep failed, err = %v", err)
			}
			r.running.Store(false)
		}
	}
}

func (r *defaultReconciler) candidates(ctx context.Context) ([]*types.ReconciliationCandidate, error) {
	oracleCtx, cancel := context.WithTimeout(ctx, r.cfg.OracleTimeoutDuration())
	defer cancel()

	candidates, err := r.attestor.GetConfirmedFundingEvents(oracleCtx)
	metrics.OracleCalls.WithLabelValues(oracle.OpGetFundingEvents, metrics.Result(err)).Inc()

	return candidates, err
}

func (r *defaultReconciler) Sweep(ctx context.Context) (*SweepResult, error) {
	metrics.ReconcileSweeps.Inc()

	candidates, err := r.candidates(ctx)
	if err != nil {
		return nil, err
	}

	result := r.process(ctx, candidates, true)
	if result.Candidates > 0 {
		log.Infof("Sweep %s: %d candidates, %d written, %d failed", result.ID, result.Candidates,
			result.Written, result.Failed)
	}

	return result, nil
}

func (r *defaultReconciler) ForceCheck(ctx context.Context, id string) (*SweepResult, error) {
	id = utils.NormalizeUUID(id)

	candidates, err := r.candidates(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*types.ReconciliationCandidate, 0, 1)
	for _, c := range candidates {
		if utils.NormalizeUUID(c.UUID) == id {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no confirmed funding for %s", types.ErrVaultNotFound, id)
	}

	log.Info("Force checking vault ", id)
	return r.process(ctx, matched, false), nil
}

// suppressed reports whether uuid had a write attempt within the suppression window.
func (r *defaultReconciler) suppressed(uuid string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	v, ok := r.processed.Get(uuid)
	if !ok {
		return false
	}

	return r.now().Sub(v.(time.Time)) < r.cfg.SuppressionWindowDuration()
}

func (r *defaultReconciler) markProcessed(uuid string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.processed.Add(uuid, r.now())
}

type pendingWrite struct {
	candidate *types.ReconciliationCandidate
	adapter   chains.Adapter
}

func (r *defaultReconciler) process(ctx context.Context, candidates []*types.ReconciliationCandidate,
	suppress bool) *SweepResult {
	result := newSweepResult(len(candidates))
	decide := func(decision string) {
		result.Decisions[decision]++
		metrics.ReconcileCandidates.WithLabelValues(decision).Inc()
	}

	writes := make([]*pendingWrite, 0)
	for _, c := range candidates {
		c.UUID = utils.NormalizeUUID(c.UUID)

		decision, adapter := r.check(ctx, c, suppress)
		if decision != DecisionWrite {
			decide(decision)
			continue
		}

		decide(DecisionWrite)
		writes = append(writes, &pendingWrite{candidate: c, adapter: adapter})
	}

	written := atomic.NewInt32(0)
	failed := atomic.NewInt32(0)
	wg := &sync.WaitGroup{}
	wg.Add(len(writes))
	for _, w := range writes {
		go func(w *pendingWrite) {
			defer wg.Done()
			if r.writeFunded(ctx, w) {
				written.Inc()
			} else {
				failed.Inc()
			}
		}(w)
	}
	wg.Wait()

	result.Written = int(written.Load())
	result.Failed = int(failed.Load())

	return result
}

// check decides what to do with a candidate. On DecisionWrite the registry has the funded write
// marked in flight and the caller owns finishing it.
func (r *defaultReconciler) check(ctx context.Context, c *types.ReconciliationCandidate,
	suppress bool) (string, chains.Adapter) {
	if _, err := chainhash.NewHashFromStr(c.FundingTxID); err != nil || len(c.FundingTxID) != chainhash.MaxHashStringSize {
		log.Warnf("Candidate %s has an invalid funding txid %q", c.UUID, c.FundingTxID)
		return DecisionInvalid, nil
	}

	if suppress && r.suppressed(c.UUID) {
		return DecisionSuppressed, nil
	}

	adapter, ok := r.adapters[c.ChainName]
	if !ok {
		log.Warnf("Candidate %s is on chain %s which is not configured", c.UUID, c.ChainName)
		return DecisionUnknownChain, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, r.cfg.OracleTimeoutDuration())
	view, err := adapter.CheckAndGetVault(readCtx, c.UUID)
	cancel()
	if err != nil {
		log.Warnf("Cannot read vault %s on chain %s, err = %v", c.UUID, c.ChainName, err)
		return DecisionFailed, nil
	}
	if view == nil {
		log.Verbosef("Vault %s does not exist on chain %s", c.UUID, c.ChainName)
		return DecisionAbsent, nil
	}

	if view.Status != types.VaultStatusReady {
		r.registry.Update(c.UUID, func(v *types.Vault) error {
			if v.Chain == "" {
				v.Chain = c.ChainName
			}
			if v.ContractAddress == "" {
				v.ContractAddress = view.ContractAddress
			}
			v.Funded = true
			return nil
		})
		return DecisionFundedOnChain, nil
	}

	if err := r.registry.BeginFunding(c.UUID, c.ChainName, view.ContractAddress); err != nil {
		log.Verbosef("Not writing funded status for %s: %v", c.UUID, err)
		return DecisionBusy, nil
	}

	r.markProcessed(c.UUID)

	return DecisionWrite, adapter
}

func (r *defaultReconciler) writeFunded(ctx context.Context, w *pendingWrite) bool {
	c := w.candidate

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeoutDuration())
	defer cancel()

	receipt, err := w.adapter.SetVaultStatusFunded(writeCtx, c.UUID, c.FundingTxID)
	switch {
	case err == nil:
		log.Infof("Vault %s marked funded on chain %s, tx %s", c.UUID, c.ChainName, receipt.TxHash)
	case errors.Is(err, types.ErrAlreadyInState):
		log.Infof("Vault %s was already funded on chain %s", c.UUID, c.ChainName)
	default:
		log.Errorf("Failed to mark vault %s funded on chain %s, err = %v", c.UUID, c.ChainName, err)
		r.registry.FinishFunding(c.UUID, false)
		return false
	}

	r.registry.FinishFunding(c.UUID, true)
	return true
}
