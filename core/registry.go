package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dlc-link/dlc-observer/database"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/sisu-network/lib/log"
)

// VaultRegistry is the in-memory map of known vaults, shared by the event handlers and the
// reconciliation loop.
type VaultRegistry interface {
	Load() error
	Upsert(vault *types.Vault)
	Find(uuid string) (*types.Vault, bool)
	// Remove is administrative only, nothing in the lifecycle deletes vaults.
	Remove(uuid string)
	All() []*types.Vault

	// Update runs mutate on a copy of the vault under the registry lock. The copy replaces the
	// stored record only when mutate returns nil. A missing vault is passed as a zero record with
	// the uuid set.
	Update(uuid string, mutate func(v *types.Vault) error) (*types.Vault, error)

	// BeginFunding marks a funded write to chain as in flight, recording chain and contract on a
	// vault that has none yet. It fails with ErrAlreadyFunded, ErrFundingInFlight or
	// ErrVaultChainConflict.
	BeginFunding(uuid, chain, contract string) error
	FinishFunding(uuid string, confirmed bool)
}

type defaultRegistry struct {
	db     database.Database
	lock   *sync.Mutex
	vaults map[string]*types.Vault
}

// NewVaultRegistry returns a registry writing through to db. db may be nil.
func NewVaultRegistry(db database.Database) VaultRegistry {
	return &defaultRegistry{
		db:     db,
		lock:   &sync.Mutex{},
		vaults: make(map[string]*types.Vault),
	}
}

func (r *defaultRegistry) Load() error {
	if r.db == nil {
		return nil
	}

	vaults, err := r.db.LoadVaults()
	if err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	for _, v := range vaults {
		r.vaults[v.UUID] = v
	}
	metrics.RegistrySize.Set(float64(len(r.vaults)))
	log.Infof("Loaded %d vaults into the registry", len(vaults))

	return nil
}

// save must be called with the lock held.
func (r *defaultRegistry) save(v *types.Vault) {
	r.vaults[v.UUID] = v
	metrics.RegistrySize.Set(float64(len(r.vaults)))

	if r.db != nil {
		r.db.SaveVault(v.Copy())
	}
}

func (r *defaultRegistry) Upsert(vault *types.Vault) {
	v := vault.Copy()
	v.UUID = utils.NormalizeUUID(v.UUID)
	v.UpdatedAt = time.Now()

	r.lock.Lock()
	defer r.lock.Unlock()

	r.save(v)
}

func (r *defaultRegistry) Find(uuid string) (*types.Vault, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	v, ok := r.vaults[utils.NormalizeUUID(uuid)]
	return v.Copy(), ok
}

func (r *defaultRegistry) Remove(uuid string) {
	uuid = utils.NormalizeUUID(uuid)

	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.vaults, uuid)
	metrics.RegistrySize.Set(float64(len(r.vaults)))
	if r.db != nil {
		r.db.DeleteVault(uuid)
	}
}

func (r *defaultRegistry) All() []*types.Vault {
	r.lock.Lock()
	defer r.lock.Unlock()

	ret := make([]*types.Vault, 0, len(r.vaults))
	for _, v := range r.vaults {
		ret = append(ret, v.Copy())
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].UUID < ret[j].UUID })

	return ret
}

func (r *defaultRegistry) Update(uuid string, mutate func(v *types.Vault) error) (*types.Vault, error) {
	uuid = utils.NormalizeUUID(uuid)

	r.lock.Lock()
	defer r.lock.Unlock()

	cp := r.vaults[uuid].Copy()
	if cp == nil {
		cp = &types.Vault{UUID: uuid}
	}

	if err := mutate(cp); err != nil {
		return nil, err
	}

	// Funded never goes back to false.
	if old, ok := r.vaults[uuid]; ok && old.Funded {
		cp.Funded = true
	}
	cp.UUID = uuid
	cp.UpdatedAt = time.Now()
	r.save(cp)

	return cp.Copy(), nil
}

func (r *defaultRegistry) BeginFunding(uuid, chain, contract string) error {
	_, err := r.Update(uuid, func(v *types.Vault) error {
		if v.Chain != "" && chain != "" && v.Chain != chain {
			return types.ErrVaultChainConflict
		}
		if v.Chain == "" {
			v.Chain = chain
		}
		if v.ContractAddress == "" {
			v.ContractAddress = contract
		}

		if v.Funded {
			return types.ErrAlreadyFunded
		}
		if v.FundedRequested {
			return types.ErrFundingInFlight
		}

		v.FundedRequested = true
		return nil
	})

	return err
}

func (r *defaultRegistry) FinishFunding(uuid string, confirmed bool) {
	r.Update(uuid, func(v *types.Vault) error {
		v.FundedRequested = false
		if confirmed {
			v.Funded = true
		}
		return nil
	})
}
