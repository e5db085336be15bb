package core

import (
	"context"

	"github.com/dlc-link/dlc-observer/types"
)

type MockReconciler struct {
	StartFunc      func(ctx context.Context)
	SweepFunc      func(ctx context.Context) (*SweepResult, error)
	ForceCheckFunc func(ctx context.Context, uuid string) (*SweepResult, error)
}

func (m *MockReconciler) Start(ctx context.Context) {
	if m.StartFunc != nil {
		m.StartFunc(ctx)
	}
}

func (m *MockReconciler) Sweep(ctx context.Context) (*SweepResult, error) {
	if m.SweepFunc != nil {
		return m.SweepFunc(ctx)
	}

	return &SweepResult{Decisions: map[string]int{}}, nil
}

func (m *MockReconciler) ForceCheck(ctx context.Context, uuid string) (*SweepResult, error) {
	if m.ForceCheckFunc != nil {
		return m.ForceCheckFunc(ctx, uuid)
	}

	return &SweepResult{Decisions: map[string]int{}}, nil
}

type MockCoordinator struct {
	HandleFunc               func(ctx context.Context, ev *types.Event) error
	SetTxHandlingEnabledFunc func(enabled bool)
	TxHandlingEnabledFunc    func() bool
}

func (m *MockCoordinator) Handle(ctx context.Context, ev *types.Event) error {
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, ev)
	}

	return nil
}

func (m *MockCoordinator) SetTxHandlingEnabled(enabled bool) {
	if m.SetTxHandlingEnabledFunc != nil {
		m.SetTxHandlingEnabledFunc(enabled)
	}
}

func (m *MockCoordinator) TxHandlingEnabled() bool {
	if m.TxHandlingEnabledFunc != nil {
		return m.TxHandlingEnabledFunc()
	}

	return false
}
