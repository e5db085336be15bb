package types

import (
	"encoding/json"
	"math/big"
)

type Announcement struct {
	UUID       string `json:"uuid"`
	Maturation string `json:"maturation"`
}

type Attestation struct {
	UUID    string   `json:"uuid"`
	Outcome *big.Int `json:"outcome"`

	// ClosingTxID is the bitcoin closing transaction, when the attestor already broadcast it.
	ClosingTxID string `json:"closing_tx_id,omitempty"`
}

type ReconciliationCandidate struct {
	UUID        string `json:"uuid"`
	ChainName   string `json:"chain_name"`
	FundingTxID string `json:"funding_txid"`
}

// OracleEvent is an attestor event passed through as returned by the attestor.
type OracleEvent = json.RawMessage
