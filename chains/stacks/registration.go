package stacks

import (
	"context"
	"sort"
	"sync"

	"github.com/dlc-link/dlc-observer/chains/stacks/clarity"
	"github.com/sisu-network/lib/log"
)

// contractSet is the allow-list of a stacks adapter: the manager plus every protocol contract
// that registered with it.
type contractSet struct {
	manager string

	lock       *sync.RWMutex
	registered map[string]bool
}

func newContractSet(manager string) *contractSet {
	return &contractSet{
		manager:    manager,
		lock:       &sync.RWMutex{},
		registered: make(map[string]bool),
	}
}

func (c *contractSet) Allowed(contractID string) bool {
	if contractID == c.manager {
		return true
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.registered[contractID]
}

// Add returns false when the contract was already known.
func (c *contractSet) Add(contractID string) bool {
	if contractID == c.manager {
		return false
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.registered[contractID] {
		return false
	}
	c.registered[contractID] = true

	return true
}

func (c *contractSet) Remove(contractID string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.registered[contractID] {
		return false
	}
	delete(c.registered, contractID)

	return true
}

func (c *contractSet) Registered() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	ret := make([]string, 0, len(c.registered))
	for id := range c.registered {
		ret = append(ret, id)
	}
	sort.Strings(ret)

	return ret
}

// loadRegisteredContracts reads the registration NFTs the manager holds. Each token id is the
// principal of a registered protocol contract.
func (a *stacksAdapter) loadRegisteredContracts(ctx context.Context) error {
	if a.cfg.RegistrationNft == "" {
		return nil
	}

	manager := a.cfg.ContractAddress
	holdings, err := a.client.GetNftHoldings(ctx, manager, manager+"::"+a.cfg.RegistrationNft)
	if err != nil {
		return err
	}

	for _, h := range holdings {
		v, err := clarity.DecodeHex(h.Value.Hex)
		if err != nil {
			log.Errorf("Cannot decode registration nft %s on chain %s, err = %v", h.Value.Repr, a.chain, err)
			continue
		}

		contract, ok := clarity.PrincipalString(v)
		if !ok {
			log.Errorf("Registration nft %s on chain %s is not a principal", h.Value.Repr, a.chain)
			continue
		}

		a.registerContract(contract)
	}

	log.Infof("Loaded %d registered contracts on chain %s", len(a.contracts.Registered()), a.chain)
	return nil
}

func (a *stacksAdapter) registerContract(contract string) {
	if !a.contracts.Add(contract) {
		log.Verbosef("Contract %s is already registered on chain %s", contract, a.chain)
		return
	}

	log.Infof("Registering protocol contract %s on chain %s", contract, a.chain)
	if err := a.socket.Subscribe(contract); err != nil {
		// The subscription is replayed on the next reconnect.
		log.Warnf("Cannot subscribe to %s on chain %s, err = %v", contract, a.chain, err)
	}
}

func (a *stacksAdapter) unregisterContract(contract string) {
	if !a.contracts.Remove(contract) {
		log.Verbosef("Contract %s is not registered on chain %s", contract, a.chain)
		return
	}

	log.Infof("Unregistering protocol contract %s on chain %s", contract, a.chain)
	if err := a.socket.Unsubscribe(contract); err != nil {
		log.Warnf("Cannot unsubscribe from %s on chain %s, err = %v", contract, a.chain, err)
	}
}
