package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/dlc-link/dlc-observer/network"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/sisu-network/lib/log"
)

const (
	OpCreateAnnouncement = "create_announcement"
	OpAttest             = "attest"
	OpGetEvent           = "get_event"
	OpGetEvents          = "get_events"
	OpGetPublicKey       = "get_public_key"
	OpGetFundingEvents   = "get_funding_events"
)

// Attestor is the external oracle that announces and attests DLC outcomes. Every failure comes
// back as *types.OracleUnavailableError.
type Attestor interface {
	CreateAnnouncement(ctx context.Context, uuid, maturation string) (*types.Announcement, error)
	Attest(ctx context.Context, uuid string, outcome *big.Int) (*types.Attestation, error)

	// GetEvent returns nil, nil when the attestor has no event for uuid.
	GetEvent(ctx context.Context, uuid string) (types.OracleEvent, error)
	GetAllEvents(ctx context.Context) ([]types.OracleEvent, error)
	GetPublicKey(ctx context.Context) (string, error)

	// GetConfirmedFundingEvents lists vaults whose bitcoin funding tx is confirmed.
	GetConfirmedFundingEvents(ctx context.Context) ([]*types.ReconciliationCandidate, error)
}

type httpAttestor struct {
	url         string
	networkHttp network.Http
}

func NewAttestor(url string, networkHttp network.Http) Attestor {
	return &httpAttestor{
		url:         strings.TrimSuffix(url, "/"),
		networkHttp: networkHttp,
	}
}

func (a *httpAttestor) get(ctx context.Context, op, path string, q url.Values, out interface{}) error {
	u := a.url + "/v1" + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.NewOracleUnavailableErr(op, err)
	}

	data, err := a.networkHttp.Do(req)
	if err != nil {
		return types.NewOracleUnavailableErr(op, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return types.NewOracleUnavailableErr(op, fmt.Errorf("malformed response %q: %w", string(data), err))
	}

	return nil
}

func (a *httpAttestor) CreateAnnouncement(ctx context.Context, uuid, maturation string) (*types.Announcement, error) {
	log.Verbosef("Creating announcement for %s with maturation %s", uuid, maturation)

	q := url.Values{}
	q.Set("maturation", maturation)
	if err := a.get(ctx, OpCreateAnnouncement, "/create_event/"+url.PathEscape(uuid), q, nil); err != nil {
		return nil, err
	}

	return &types.Announcement{UUID: uuid, Maturation: maturation}, nil
}

func (a *httpAttestor) Attest(ctx context.Context, uuid string, outcome *big.Int) (*types.Attestation, error) {
	if outcome == nil || outcome.Sign() < 0 {
		return nil, types.NewOracleUnavailableErr(OpAttest, fmt.Errorf("invalid outcome %v", outcome))
	}

	log.Verbosef("Attesting %s with outcome %s", uuid, outcome)

	q := url.Values{}
	q.Set("outcome", outcome.String())

	attestation := &types.Attestation{}
	if err := a.get(ctx, OpAttest, "/attest/"+url.PathEscape(uuid), q, attestation); err != nil {
		return nil, err
	}

	if attestation.UUID == "" {
		attestation.UUID = uuid
	}
	if attestation.Outcome == nil {
		return nil, types.NewOracleUnavailableErr(OpAttest, fmt.Errorf("attestation of %s has no outcome", uuid))
	}

	return attestation, nil
}

func (a *httpAttestor) GetEvent(ctx context.Context, uuid string) (types.OracleEvent, error) {
	var event types.OracleEvent
	err := a.get(ctx, OpGetEvent, "/event/"+url.PathEscape(uuid), nil, &event)
	if err != nil {
		if network.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if string(event) == "null" {
		return nil, nil
	}

	return event, nil
}

func (a *httpAttestor) GetAllEvents(ctx context.Context) ([]types.OracleEvent, error) {
	events := make([]types.OracleEvent, 0)
	if err := a.get(ctx, OpGetEvents, "/events", nil, &events); err != nil {
		return nil, err
	}

	return events, nil
}

func (a *httpAttestor) GetPublicKey(ctx context.Context) (string, error) {
	var key string
	if err := a.get(ctx, OpGetPublicKey, "/publickey", nil, &key); err != nil {
		return "", err
	}

	return key, nil
}

func (a *httpAttestor) GetConfirmedFundingEvents(ctx context.Context) ([]*types.ReconciliationCandidate, error) {
	candidates := make([]*types.ReconciliationCandidate, 0)
	if err := a.get(ctx, OpGetFundingEvents, "/funding/confirmed", nil, &candidates); err != nil {
		return nil, err
	}

	return candidates, nil
}
