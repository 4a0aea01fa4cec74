// Package rpc waits for JSON-RPC endpoints to start serving blocks.
package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dahlia-labs/deployctl/internal/logger"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	DefaultAttempts = 120
	DefaultInterval = time.Second
)

type (
	Option func(*Waiter)

	// Waiter polls eth_blockNumber until it answers. Attempts of 0 means no bound
	// other than the context.
	Waiter struct {
		attempts int
		interval time.Duration
		logger   *slog.Logger
	}
)

func WithAttempts(n int) Option {
	return func(w *Waiter) {
		if n >= 0 {
			w.attempts = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

func NewWaiter(opts ...Option) *Waiter {
	w := &Waiter{
		attempts: DefaultAttempts,
		interval: DefaultInterval,
		logger:   logger.Named("rpc_waiter"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait returns the first block number reported by url.
func (w *Waiter) Wait(ctx context.Context, url string) (uint64, error) {
	log := w.logger.With("url", url)
	log.Info("waiting for RPC")

	var lastErr error
	for attempt := 1; w.attempts == 0 || attempt <= w.attempts; attempt++ {
		block, err := blockNumber(ctx, url)
		if err == nil {
			log.With("block", block).Info("RPC is ready")
			return block, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return 0, fmt.Errorf("stopped waiting for RPC at %s: %w", url, ctx.Err())
		}

		log.With("attempt", attempt).With("err", err.Error()).Info("RPC is not ready yet, retrying...")

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("stopped waiting for RPC at %s: %w", url, ctx.Err())
		case <-time.After(w.interval):
		}
	}

	return 0, &UnavailableError{URL: url, Attempts: w.attempts, Err: lastErr}
}

func blockNumber(ctx context.Context, url string) (uint64, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("failed to dial: %w", err)
	}
	defer client.Close()

	return client.BlockNumber(ctx)
}
