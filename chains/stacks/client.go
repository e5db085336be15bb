package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dlc-link/dlc-observer/chains/stacks/clarity"
	"github.com/dlc-link/dlc-observer/network"
	"github.com/dlc-link/dlc-observer/types"
)

const nftPageSize = 50

// Client talks to the Stacks node and extended API over REST.
type Client interface {
	// GetTransaction returns nil, nil when the API does not know the tx (yet).
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)
	CallReadOnly(ctx context.Context, contractID, function, sender string, args ...clarity.Value) (clarity.Value, error)
	GetNonce(ctx context.Context, principal string) (uint64, error)
	// Broadcast submits a serialized transaction and returns its id.
	Broadcast(ctx context.Context, raw []byte) (string, error)
	GetNftHoldings(ctx context.Context, principal, assetIdentifier string) ([]NftHolding, error)
}

type defaultClient struct {
	chain  string
	apiUrl string
	http   network.Http
}

func NewClient(chain, apiUrl string, h network.Http) Client {
	return &defaultClient{
		chain:  chain,
		apiUrl: strings.TrimSuffix(apiUrl, "/"),
		http:   h,
	}
}

func (c *defaultClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiUrl+path, nil)
	if err != nil {
		return err
	}

	body, err := c.http.Do(req)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}

func (c *defaultClient) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	tx := &Transaction{}
	if err := c.get(ctx, "/extended/v1/tx/"+txID, tx); err != nil {
		if network.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get tx %s: %w", txID, err)
	}

	return tx, nil
}

func splitContractID(contractID string) (string, string, error) {
	addr, name, ok := strings.Cut(contractID, ".")
	if !ok || addr == "" || name == "" {
		return "", "", fmt.Errorf("invalid contract id %s", contractID)
	}
	return addr, name, nil
}

func (c *defaultClient) CallReadOnly(ctx context.Context, contractID, function, sender string, args ...clarity.Value) (clarity.Value, error) {
	addr, name, err := splitContractID(contractID)
	if err != nil {
		return nil, err
	}

	body := readOnlyRequest{Sender: sender, Arguments: make([]string, 0, len(args))}
	for _, arg := range args {
		encoded, err := clarity.EncodeHex(arg)
		if err != nil {
			return nil, err
		}
		body.Arguments = append(body.Arguments, encoded)
	}

	bz, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s", c.apiUrl, addr, name, function)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(bz))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read-only call %s.%s failed: %w", contractID, function, err)
	}

	resp := &readOnlyResponse{}
	if err := json.Unmarshal(respBody, resp); err != nil {
		return nil, err
	}
	if !resp.Okay {
		return nil, fmt.Errorf("read-only call %s.%s rejected: %s", contractID, function, resp.Cause)
	}

	return clarity.DecodeHex(resp.Result)
}

func (c *defaultClient) GetNonce(ctx context.Context, principal string) (uint64, error) {
	resp := &accountResponse{}
	if err := c.get(ctx, "/v2/accounts/"+principal+"?proof=0", resp); err != nil {
		return 0, fmt.Errorf("cannot get nonce of %s: %w", principal, err)
	}

	return resp.Nonce, nil
}

func (c *defaultClient) Broadcast(ctx context.Context, raw []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiUrl+"/v2/transactions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.http.Do(req)
	if err != nil {
		var statusErr *network.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			rejection := &broadcastRejection{}
			if json.Unmarshal(statusErr.Body, rejection) == nil && rejection.Reason != "" {
				return "", types.NewBroadcastErr(c.chain, rejection.Reason)
			}
			return "", types.NewBroadcastErr(c.chain, string(statusErr.Body))
		}
		return "", err
	}

	// The node answers with the tx id as a json string.
	var txID string
	if err := json.Unmarshal(body, &txID); err != nil {
		return "", fmt.Errorf("unexpected broadcast response %s: %w", string(body), err)
	}
	if !strings.HasPrefix(txID, "0x") {
		txID = "0x" + txID
	}

	return txID, nil
}

func (c *defaultClient) GetNftHoldings(ctx context.Context, principal, assetIdentifier string) ([]NftHolding, error) {
	holdings := make([]NftHolding, 0)

	for offset := 0; ; {
		q := url.Values{}
		q.Set("principal", principal)
		q.Set("asset_identifiers", assetIdentifier)
		q.Set("limit", fmt.Sprint(nftPageSize))
		q.Set("offset", fmt.Sprint(offset))

		resp := &nftHoldingsResponse{}
		if err := c.get(ctx, "/extended/v1/tokens/nft/holdings?"+q.Encode(), resp); err != nil {
			return nil, fmt.Errorf("cannot get nft holdings of %s: %w", principal, err)
		}

		holdings = append(holdings, resp.Results...)
		offset += len(resp.Results)
		if len(resp.Results) == 0 || offset >= resp.Total {
			break
		}
	}

	return holdings, nil
}
