package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dlc-link/dlc-observer/chains"
	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/core/oracle"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/sisu-network/lib/log"
	"go.uber.org/atomic"
)

// Coordinator applies the vault lifecycle to canonical events: it drives the attestor and
// writes confirmations back to the originating chain.
type Coordinator interface {
	Handle(ctx context.Context, ev *types.Event) error

	SetTxHandlingEnabled(enabled bool)
	TxHandlingEnabled() bool
}

type defaultCoordinator struct {
	cfg      *config.Observer
	attestor oracle.Attestor
	registry VaultRegistry
	adapters map[string]chains.Adapter

	txHandlingEnabled *atomic.Bool
}

func NewCoordinator(cfg *config.Observer, attestor oracle.Attestor, registry VaultRegistry,
	adapters map[string]chains.Adapter) Coordinator {
	return &defaultCoordinator{
		cfg:               cfg,
		attestor:          attestor,
		registry:          registry,
		adapters:          adapters,
		txHandlingEnabled: atomic.NewBool(cfg.TxHandlingEnabled),
	}
}

func (c *defaultCoordinator) SetTxHandlingEnabled(enabled bool) {
	log.Infof("Tx handling enabled = %t", enabled)
	c.txHandlingEnabled.Store(enabled)
}

func (c *defaultCoordinator) TxHandlingEnabled() bool {
	return c.txHandlingEnabled.Load()
}

func (c *defaultCoordinator) adapter(chain string) (chains.Adapter, error) {
	adapter, ok := c.adapters[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrAdapterNotFound, chain)
	}

	return adapter, nil
}

func (c *defaultCoordinator) Handle(ctx context.Context, ev *types.Event) error {
	log.Info("Handling ", ev)

	var err error
	switch ev.Kind {
	case types.EventCreated:
		err = c.onCreated(ctx, ev)
	case types.EventCreateConfirmed:
		err = c.onCreateConfirmed(ev)
	case types.EventFunded:
		err = c.onFunded(ev)
	case types.EventClosing:
		err = c.onClosing(ctx, ev)
	case types.EventClosed:
		err = c.onClosed(ev)
	case types.EventPriceRequested:
		log.Infof("Price requested for %s on chain %s by %s", ev.UUID, ev.Chain, ev.Caller)
	default:
		log.Verbose("Nothing to do for ", ev)
	}

	if errors.Is(err, types.ErrTxHandlingDisabled) {
		log.Infof("Tx handling disabled, skipping effects of %s for %s", ev.Kind, ev.UUID)
		return nil
	}
	if err != nil {
		log.Errorf("Failed to handle %s for %s on chain %s, err = %v", ev.Kind, ev.UUID, ev.Chain, err)
	}

	return err
}

func (c *defaultCoordinator) oracleCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.OracleTimeoutDuration())
}

func (c *defaultCoordinator) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.WriteTimeoutDuration())
}

func (c *defaultCoordinator) onCreated(ctx context.Context, ev *types.Event) error {
	maturation := utils.FormatMaturation(ev.EmergencyRefundTime, c.cfg.MaturationShift)
	log.Infof("Vault %s created on chain %s, maturation %s", ev.UUID, ev.Chain, maturation)

	if !c.TxHandlingEnabled() {
		return types.ErrTxHandlingDisabled
	}

	adapter, err := c.adapter(ev.Chain)
	if err != nil {
		return err
	}

	oracleCtx, cancel := c.oracleCtx(ctx)
	_, err = c.attestor.CreateAnnouncement(oracleCtx, ev.UUID, maturation)
	cancel()
	metrics.OracleCalls.WithLabelValues(oracle.OpCreateAnnouncement, metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	writeCtx, cancel := c.writeCtx(ctx)
	defer cancel()
	receipt, err := adapter.PostCreateVault(writeCtx, ev)
	if err != nil {
		return err
	}

	log.Infof("Vault %s accepted on chain %s, tx %s", ev.UUID, ev.Chain, receipt.TxHash)
	return nil
}

// merge records where the vault lives. Chain and contract never change once set.
func merge(v *types.Vault, ev *types.Event) error {
	if v.Chain != "" && ev.Chain != "" && v.Chain != ev.Chain {
		return fmt.Errorf("%w: %s is on %s, event from %s", types.ErrVaultChainConflict, v.UUID, v.Chain,
			ev.Chain)
	}
	if v.Chain == "" {
		v.Chain = ev.Chain
	}

	if v.ContractAddress == "" {
		v.ContractAddress = ev.ContractAddress
	} else if ev.ContractAddress != "" && !strings.EqualFold(v.ContractAddress, ev.ContractAddress) {
		log.Warnf("Vault %s is recorded on contract %s, ignoring contract %s from %s event", v.UUID,
			v.ContractAddress, ev.ContractAddress, ev.Kind)
	}

	return nil
}

func (c *defaultCoordinator) onCreateConfirmed(ev *types.Event) error {
	_, err := c.registry.Update(ev.UUID, func(v *types.Vault) error {
		return merge(v, ev)
	})

	return err
}

func (c *defaultCoordinator) onFunded(ev *types.Event) error {
	_, err := c.registry.Update(ev.UUID, func(v *types.Vault) error {
		if err := merge(v, ev); err != nil {
			return err
		}
		v.Funded = true
		v.FundedRequested = false
		return nil
	})

	return err
}

func (c *defaultCoordinator) onClosing(ctx context.Context, ev *types.Event) error {
	if ev.Outcome == nil {
		return fmt.Errorf("close event of %s has no outcome", ev.UUID)
	}

	vault, err := c.registry.Update(ev.UUID, func(v *types.Vault) error {
		if err := merge(v, ev); err != nil {
			return err
		}
		v.Outcome = ev.Outcome
		return nil
	})
	if err != nil {
		return err
	}

	if !c.TxHandlingEnabled() {
		return types.ErrTxHandlingDisabled
	}

	adapter, err := c.adapter(ev.Chain)
	if err != nil {
		return err
	}

	// Cross-check against what the registry holds, not the event copy.
	outcome := vault.Outcome
	normalized := utils.NormalizeOutcome(outcome, c.cfg.PrecisionShift)

	oracleCtx, cancel := c.oracleCtx(ctx)
	attestation, err := c.attestor.Attest(oracleCtx, ev.UUID, normalized)
	cancel()
	metrics.OracleCalls.WithLabelValues(oracle.OpAttest, metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	if !utils.OutcomesMatch(outcome, attestation.Outcome, c.cfg.PrecisionShift) {
		metrics.OutcomeMismatches.WithLabelValues(ev.Chain).Inc()
		return types.NewOutcomeMismatchErr(ev.UUID, ev.Chain, normalized, attestation.Outcome)
	}

	writeCtx, cancel := c.writeCtx(ctx)
	defer cancel()
	receipt, err := adapter.SetVaultStatusPostClosed(writeCtx, ev.UUID, attestation.ClosingTxID)
	if errors.Is(err, types.ErrAlreadyInState) {
		log.Infof("Vault %s is already closed on chain %s", ev.UUID, ev.Chain)
		return nil
	}
	if err != nil {
		return err
	}

	log.Infof("Vault %s post-closed on chain %s with outcome %s, tx %s", ev.UUID, ev.Chain, normalized,
		receipt.TxHash)
	return nil
}

func (c *defaultCoordinator) onClosed(ev *types.Event) error {
	_, err := c.registry.Update(ev.UUID, func(v *types.Vault) error {
		if err := merge(v, ev); err != nil {
			return err
		}
		if ev.Outcome != nil {
			v.Outcome = ev.Outcome
		}
		return nil
	})

	return err
}
