package types

import (
	"math/big"
	"time"
)

type ChainFamily string

const (
	ChainFamilyEvm    ChainFamily = "evm"
	ChainFamilyStacks ChainFamily = "stacks"
)

// Vault is the cross-chain record of one DLC instance.
type Vault struct {
	UUID            string
	Chain           string
	ContractAddress string

	// Outcome is nil until a close event reports it.
	Outcome *big.Int

	// FundedRequested is true while a funded confirmation write is in flight.
	FundedRequested bool
	Funded          bool

	UpdatedAt time.Time
}

func (v *Vault) Copy() *Vault {
	if v == nil {
		return nil
	}

	cp := *v
	if v.Outcome != nil {
		cp.Outcome = new(big.Int).Set(v.Outcome)
	}

	return &cp
}

type VaultStatus int

const (
	VaultStatusReady VaultStatus = iota
	VaultStatusFunded
	VaultStatusClosing
	VaultStatusClosed
)

func (s VaultStatus) String() string {
	switch s {
	case VaultStatusReady:
		return "ready"
	case VaultStatusFunded:
		return "funded"
	case VaultStatusClosing:
		return "closing"
	case VaultStatusClosed:
		return "closed"
	}

	return "unknown"
}

// VaultView is what a chain reports about a vault.
type VaultView struct {
	UUID             string
	Chain            string
	ContractAddress  string
	Creator          string
	CallbackContract string
	Outcome          *big.Int
	Status           VaultStatus
	FundingTxID      string
	ClosingTxID      string
	Timestamp        uint64
}

type Receipt struct {
	Chain       string
	TxHash      string
	BlockNumber uint64
}

type NonceLease struct {
	Chain   string
	Account string
	Value   uint64
}
