package oracle

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"testing"

	"github.com/dlc-link/dlc-observer/network"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/stretchr/testify/require"
)

const testUUID = "0xa706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047"

func TestCreateAnnouncement(t *testing.T) {
	h := &network.MockHttp{
		DoFunc: func(req *http.Request) ([]byte, error) {
			require.Equal(t, "/v1/create_event/"+testUUID, req.URL.Path)
			require.Equal(t, "2023-03-01T00:00:00Z", req.URL.Query().Get("maturation"))
			return []byte(`{}`), nil
		},
	}

	ann, err := NewAttestor("http://attestor/", h).CreateAnnouncement(context.Background(), testUUID,
		"2023-03-01T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, &types.Announcement{UUID: testUUID, Maturation: "2023-03-01T00:00:00Z"}, ann)
}

func TestAttest(t *testing.T) {
	h := &network.MockHttp{
		DoFunc: func(req *http.Request) ([]byte, error) {
			require.Equal(t, "/v1/attest/"+testUUID, req.URL.Path)
			require.Equal(t, "92", req.URL.Query().Get("outcome"))
			return []byte(`{"uuid":"` + testUUID + `","outcome":92,"closing_tx_id":"btc-close"}`), nil
		},
	}

	attestation, err := NewAttestor("http://attestor", h).Attest(context.Background(), testUUID, big.NewInt(92))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(92), attestation.Outcome)
	require.Equal(t, "btc-close", attestation.ClosingTxID)
}

func TestAttest_Unavailable(t *testing.T) {
	h := &network.MockHttp{
		DoFunc: func(req *http.Request) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := NewAttestor("http://attestor", h).Attest(context.Background(), testUUID, big.NewInt(92))
	var unavailable *types.OracleUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, OpAttest, unavailable.Op)

	h.DoFunc = func(req *http.Request) ([]byte, error) {
		return []byte(`not json`), nil
	}
	_, err = NewAttestor("http://attestor", h).Attest(context.Background(), testUUID, big.NewInt(92))
	require.ErrorAs(t, err, &unavailable)
}

func TestGetEvent(t *testing.T) {
	h := &network.MockHttp{
		DoFunc: func(req *http.Request) ([]byte, error) {
			if req.URL.Path == "/v1/event/"+testUUID {
				return []byte(`{"event_id":"` + testUUID + `"}`), nil
			}
			return nil, &network.StatusError{Url: req.URL.String(), StatusCode: http.StatusNotFound}
		},
	}
	attestor := NewAttestor("http://attestor", h)

	event, err := attestor.GetEvent(context.Background(), testUUID)
	require.NoError(t, err)
	require.JSONEq(t, `{"event_id":"`+testUUID+`"}`, string(event))

	event, err = attestor.GetEvent(context.Background(), "0x01")
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestGetConfirmedFundingEvents(t *testing.T) {
	h := &network.MockHttp{
		DoFunc: func(req *http.Request) ([]byte, error) {
			switch req.URL.Path {
			case "/v1/funding/confirmed":
				return []byte(`[{"uuid":"0x01","chain_name":"eth","funding_txid":"aa"}]`), nil
			case "/v1/publickey":
				return []byte(`"02abcd"`), nil
			case "/v1/events":
				return []byte(`[{"a":1},{"b":2}]`), nil
			}
			return nil, errors.New("unexpected path")
		},
	}
	attestor := NewAttestor("http://attestor", h)

	candidates, err := attestor.GetConfirmedFundingEvents(context.Background())
	require.NoError(t, err)
	require.Equal(t, []*types.ReconciliationCandidate{{UUID: "0x01", ChainName: "eth", FundingTxID: "aa"}}, candidates)

	key, err := attestor.GetPublicKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "02abcd", key)

	events, err := attestor.GetAllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
}
