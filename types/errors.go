package types

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrVaultNotFound           = errors.New("vault not found")
	ErrMissingCallbackContract = errors.New("missing callback contract")
	ErrAlreadyFunded           = errors.New("vault already funded")
	ErrFundingInFlight         = errors.New("funded confirmation already in flight")
	ErrAlreadyInState          = errors.New("vault already in target state on chain")
	ErrAdapterNotFound         = errors.New("no adapter for chain")
	ErrTxHandlingDisabled      = errors.New("tx handling disabled")
	ErrVaultChainConflict      = errors.New("vault is recorded on another chain")
)

type OracleUnavailableError struct {
	Op  string
	Err error
}

func NewOracleUnavailableErr(op string, err error) error {
	return &OracleUnavailableError{Op: op, Err: err}
}

func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("oracle unavailable during %s: %v", e.Op, e.Err)
}

func (e *OracleUnavailableError) Unwrap() error {
	return e.Err
}

// OutcomeMismatchError means the chain and the attestor disagree about a vault outcome.
type OutcomeMismatchError struct {
	UUID     string
	Chain    string
	Expected *big.Int
	Actual   *big.Int
}

func NewOutcomeMismatchErr(uuid, chain string, expected, actual *big.Int) error {
	return &OutcomeMismatchError{UUID: uuid, Chain: chain, Expected: expected, Actual: actual}
}

func (e *OutcomeMismatchError) Error() string {
	return fmt.Sprintf("outcome mismatch for vault %s on chain %s: expected %s, oracle reported %s",
		e.UUID, e.Chain, e.Expected, e.Actual)
}

type RevertError struct {
	Chain  string
	TxHash string
	Reason string
}

func NewRevertErr(chain, txHash, reason string) error {
	return &RevertError{Chain: chain, TxHash: txHash, Reason: reason}
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("tx %s reverted on chain %s: %s", e.TxHash, e.Chain, e.Reason)
}

type BroadcastError struct {
	Chain  string
	Reason string
}

func NewBroadcastErr(chain, reason string) error {
	return &BroadcastError{Chain: chain, Reason: reason}
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast rejected on chain %s: %s", e.Chain, e.Reason)
}

// IsWriteError reports whether err was produced by a rejected or reverted write.
func IsWriteError(err error) bool {
	var revert *RevertError
	var broadcast *BroadcastError

	return errors.As(err, &revert) || errors.As(err, &broadcast)
}
