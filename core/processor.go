package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/dlc-link/dlc-observer/chains"
	"github.com/dlc-link/dlc-observer/chains/eth"
	"github.com/dlc-link/dlc-observer/chains/nonce"
	"github.com/dlc-link/dlc-observer/chains/stacks"
	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/core/oracle"
	"github.com/dlc-link/dlc-observer/database"
	"github.com/dlc-link/dlc-observer/network"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/sisu-network/lib/log"
)

const EventChannelSize = 1000

// Processor wires the chain adapters, the lifecycle coordinator and the reconciliation loop
// together.
type Processor struct {
	cfg      *config.Observer
	db       database.Database
	attestor oracle.Attestor

	adapters    map[string]chains.Adapter
	sequencer   nonce.Sequencer
	registry    VaultRegistry
	coordinator Coordinator
	reconciler  Reconciler

	eventCh chan *types.Event
}

// NewProcessor creates a processor. db may be nil, the registry then lives in memory only.
func NewProcessor(cfg *config.Observer, db database.Database, attestor oracle.Attestor) *Processor {
	return &Processor{
		cfg:       cfg,
		db:        db,
		attestor:  attestor,
		adapters:  make(map[string]chains.Adapter),
		sequencer: nonce.NewSequencer(),
		registry:  NewVaultRegistry(db),
		eventCh:   make(chan *types.Event, EventChannelSize),
	}
}

// AddAdapter registers an adapter in place of the one built from config. Must be called before
// Start.
func (p *Processor) AddAdapter(adapter chains.Adapter) {
	p.adapters[adapter.Name()] = adapter
}

func (p *Processor) buildAdapters() error {
	names := make([]string, 0, len(p.cfg.Chains))
	for name := range p.cfg.Chains {
		names = append(names, name)
	}
	sort.Strings(names)

	networkHttp := network.NewHttp()
	for _, name := range names {
		cfg := p.cfg.Chains[name]
		if !cfg.Enabled {
			log.Info("Chain is disabled: ", name)
			continue
		}
		if _, ok := p.adapters[name]; ok {
			continue
		}

		var adapter chains.Adapter
		var err error
		switch cfg.Type {
		case config.ChainTypeEvm:
			adapter, err = eth.NewAdapter(cfg, eth.NewEthClients(name, cfg.Rpcs), p.sequencer)
		case config.ChainTypeStacks:
			adapter, err = stacks.NewAdapter(
				cfg,
				stacks.NewClient(name, cfg.ApiUrl, networkHttp),
				stacks.NewSocket(name, cfg.SocketUrl),
				stacks.NewSigner(cfg.SignerUrl, networkHttp),
				p.sequencer,
			)
		default:
			err = fmt.Errorf("unknown chain type %q", cfg.Type)
		}
		if err != nil {
			return fmt.Errorf("cannot create adapter for chain %s: %w", name, err)
		}

		log.Infof("Adapter created for chain %s (%s)", name, cfg.Type)
		p.adapters[name] = adapter
	}

	return nil
}

func (p *Processor) Start(ctx context.Context) error {
	log.Info("Starting processor...")

	if err := p.registry.Load(); err != nil {
		return err
	}

	if err := p.buildAdapters(); err != nil {
		return err
	}

	p.coordinator = NewCoordinator(p.cfg, p.attestor, p.registry, p.adapters)
	p.reconciler = NewReconciler(p.cfg, p.attestor, p.registry, p.adapters)

	go p.listen(ctx)

	for name, adapter := range p.adapters {
		if err := adapter.StartListening(ctx, p.eventCh); err != nil {
			// Other chains keep running.
			log.Errorf("Cannot start listening on chain %s, err = %v", name, err)
		}
	}

	go p.reconciler.Start(ctx)

	return nil
}

func (p *Processor) listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info("Processor stopped")
			return
		case ev := <-p.eventCh:
			// Events of different vaults must not wait on each other's oracle calls or writes.
			go p.coordinator.Handle(ctx, ev)
		}
	}
}

func (p *Processor) Coordinator() Coordinator {
	return p.coordinator
}

func (p *Processor) Reconciler() Reconciler {
	return p.reconciler
}

func (p *Processor) Registry() VaultRegistry {
	return p.registry
}

func (p *Processor) Attestor() oracle.Attestor {
	return p.attestor
}
