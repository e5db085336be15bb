package eth

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/sisu-network/lib/log"
)

const (
	DefaultGasPrice = int64(20_000_000_000) // 20 gwei

	// GasMargin is added on top of every gas estimation.
	GasMargin = uint64(10_000)
)

var (
	GasPriceUpdateInterval = time.Second * 60
)

// gasCalculator caches the node's suggested gas price and refreshes it at most once per
// update interval.
type gasCalculator struct {
	chain                  string
	client                 EthClient
	gasPrice               int64
	gasPriceUpdateInterval time.Duration

	lastUpdateGasPrice time.Time
	lock               *sync.RWMutex
}

func newGasCalculator(chain string, client EthClient, gasPriceUpdateInterval time.Duration) *gasCalculator {
	return &gasCalculator{
		chain:                  chain,
		client:                 client,
		gasPrice:               DefaultGasPrice,
		gasPriceUpdateInterval: gasPriceUpdateInterval,
		lock:                   &sync.RWMutex{},
	}
}

func (g *gasCalculator) Start() {
	g.updateGasPrice()
}

// GetGasPrice returns estimated gas price.
func (g *gasCalculator) GetGasPrice() *big.Int {
	g.lock.RLock()
	lastUpdate := g.lastUpdateGasPrice
	g.lock.RUnlock()

	if time.Now().After(lastUpdate.Add(g.gasPriceUpdateInterval)) {
		g.updateGasPrice()
	}

	g.lock.RLock()
	defer g.lock.RUnlock()

	return big.NewInt(g.gasPrice)
}

// GetGasLimit adds the safety margin to an estimation.
func (g *gasCalculator) GetGasLimit(estimated uint64) uint64 {
	return estimated + GasMargin
}

func (g *gasCalculator) updateGasPrice() {
	ctx, cancel := context.WithTimeout(context.Background(), RpcTimeOut)
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	cancel()

	if err != nil || gasPrice == nil {
		log.Errorf("Failed to get gas price for chain %s, err = %v", g.chain, err)
		return
	}

	g.lock.Lock()
	g.gasPrice = gasPrice.Int64()
	g.lastUpdateGasPrice = time.Now()
	g.lock.Unlock()
}
