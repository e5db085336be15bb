package nonce

import (
	"context"
	"fmt"
	"sync"

	"github.com/dlc-link/dlc-observer/types"
	"github.com/sisu-network/lib/log"
)

// Reader returns the next nonce the chain expects from account, counting confirmed txs only.
type Reader func(ctx context.Context, account string) (uint64, error)

// Sequencer hands out nonces per (chain, account). The chain's own view lags behind rapid
// submissions from this process, so the last issued value is kept in memory and only replaced by
// the chain value when the chain is ahead.
type Sequencer interface {
	Lease(ctx context.Context, chain, account string, read Reader) (*types.NonceLease, error)
	// Reset forgets the in-memory value, e.g. after the chain rejected a nonce.
	Reset(chain, account string)
}

type accountState struct {
	lock   sync.Mutex
	issued bool
	last   uint64
}

type defaultSequencer struct {
	lock     *sync.Mutex
	accounts map[string]*accountState
}

func NewSequencer() Sequencer {
	return &defaultSequencer{
		lock:     &sync.Mutex{},
		accounts: make(map[string]*accountState),
	}
}

func (s *defaultSequencer) state(chain, account string) *accountState {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := chain + "/" + account
	st, ok := s.accounts[key]
	if !ok {
		st = &accountState{}
		s.accounts[key] = st
	}

	return st
}

func (s *defaultSequencer) Lease(ctx context.Context, chain, account string, read Reader) (*types.NonceLease, error) {
	st := s.state(chain, account)

	st.lock.Lock()
	defer st.lock.Unlock()

	chainNonce, err := read(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("cannot read nonce of %s on %s: %w", account, chain, err)
	}

	var value uint64
	switch {
	case !st.issued:
		value = chainNonce
	case chainNonce > st.last:
		log.Verbosef("Chain %s nonce for %s moved ahead to %d (last issued %d)", chain, account,
			chainNonce, st.last)
		value = chainNonce
	default:
		value = st.last + 1
	}

	st.last = value
	st.issued = true

	return &types.NonceLease{Chain: chain, Account: account, Value: value}, nil
}

func (s *defaultSequencer) Reset(chain, account string) {
	st := s.state(chain, account)

	st.lock.Lock()
	st.issued = false
	st.last = 0
	st.lock.Unlock()
}
