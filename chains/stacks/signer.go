package stacks

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dlc-link/dlc-observer/network"
)

// FeeMargin is added by the signer on top of its fee estimation.
const FeeMargin = uint64(10_000)

type ContractCallRequest struct {
	ContractID string   `json:"contract_id"`
	Function   string   `json:"function"`
	Arguments  []string `json:"arguments"`
	Sender     string   `json:"sender"`
	Nonce      uint64   `json:"nonce"`
	FeeMargin  uint64   `json:"fee_margin"`
}

type SignedTx struct {
	Tx  string `json:"tx"`
	Fee uint64 `json:"fee"`
}

func (s *SignedTx) Bytes() ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s.Tx, "0x"))
}

// Signer builds and signs contract calls. Keys of the stacks sender never live in this process.
type Signer interface {
	SignContractCall(ctx context.Context, call *ContractCallRequest) (*SignedTx, error)
}

type httpSigner struct {
	url  string
	http network.Http
}

func NewSigner(url string, h network.Http) Signer {
	return &httpSigner{
		url:  strings.TrimSuffix(url, "/"),
		http: h,
	}
}

func (s *httpSigner) SignContractCall(ctx context.Context, call *ContractCallRequest) (*SignedTx, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/sign/contract-call", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot sign %s.%s: %w", call.ContractID, call.Function, err)
	}

	signed := &SignedTx{}
	if err := json.Unmarshal(resp, signed); err != nil {
		return nil, err
	}
	if signed.Tx == "" {
		return nil, fmt.Errorf("signer returned an empty tx for %s.%s", call.ContractID, call.Function)
	}

	return signed, nil
}
