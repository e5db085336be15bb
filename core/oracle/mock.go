package oracle

import (
	"context"
	"math/big"

	"github.com/dlc-link/dlc-observer/types"
)

type MockAttestor struct {
	CreateAnnouncementFunc        func(ctx context.Context, uuid, maturation string) (*types.Announcement, error)
	AttestFunc                    func(ctx context.Context, uuid string, outcome *big.Int) (*types.Attestation, error)
	GetEventFunc                  func(ctx context.Context, uuid string) (types.OracleEvent, error)
	GetAllEventsFunc              func(ctx context.Context) ([]types.OracleEvent, error)
	GetPublicKeyFunc              func(ctx context.Context) (string, error)
	GetConfirmedFundingEventsFunc func(ctx context.Context) ([]*types.ReconciliationCandidate, error)
}

func (m *MockAttestor) CreateAnnouncement(ctx context.Context, uuid, maturation string) (*types.Announcement, error) {
	if m.CreateAnnouncementFunc != nil {
		return m.CreateAnnouncementFunc(ctx, uuid, maturation)
	}

	return &types.Announcement{UUID: uuid, Maturation: maturation}, nil
}

func (m *MockAttestor) Attest(ctx context.Context, uuid string, outcome *big.Int) (*types.Attestation, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(ctx, uuid, outcome)
	}

	return &types.Attestation{UUID: uuid, Outcome: outcome}, nil
}

func (m *MockAttestor) GetEvent(ctx context.Context, uuid string) (types.OracleEvent, error) {
	if m.GetEventFunc != nil {
		return m.GetEventFunc(ctx, uuid)
	}

	return nil, nil
}

func (m *MockAttestor) GetAllEvents(ctx context.Context) ([]types.OracleEvent, error) {
	if m.GetAllEventsFunc != nil {
		return m.GetAllEventsFunc(ctx)
	}

	return nil, nil
}

func (m *MockAttestor) GetPublicKey(ctx context.Context) (string, error) {
	if m.GetPublicKeyFunc != nil {
		return m.GetPublicKeyFunc(ctx)
	}

	return "", nil
}

func (m *MockAttestor) GetConfirmedFundingEvents(ctx context.Context) ([]*types.ReconciliationCandidate, error) {
	if m.GetConfirmedFundingEventsFunc != nil {
		return m.GetConfirmedFundingEventsFunc(ctx)
	}

	return nil, nil
}
