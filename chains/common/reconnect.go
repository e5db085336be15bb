package common

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/sisu-network/lib/log"
)

// Session runs one subscription until the connection drops.
type Session func(ctx context.Context) error

type ReconnectPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// A session that lived longer than StableAfter resets the backoff.
	StableAfter time.Duration
}

var DefaultReconnectPolicy = ReconnectPolicy{
	InitialInterval: 2 * time.Second,
	MaxInterval:     time.Minute,
	StableAfter:     time.Minute,
}

// KeepAlive runs session again and again until ctx is done, sleeping with exponential backoff
// between attempts.
func KeepAlive(ctx context.Context, chain string, policy ReconnectPolicy, session Session) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.Reset()

	for {
		start := time.Now()
		err := session(ctx)
		metrics.SubscriptionStatus.WithLabelValues(chain).Set(0)

		if ctx.Err() != nil {
			log.Infof("Subscription for chain %s stopped", chain)
			return
		}

		if time.Since(start) > policy.StableAfter {
			b.Reset()
		}

		wait := b.NextBackOff()
		log.Warnf("Subscription for chain %s dropped, err = %v. Reconnecting in %s", chain, err, wait)
		metrics.Reconnects.WithLabelValues(chain).Inc()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
