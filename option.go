package checkout

import (
	"time"

	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/settlement"
)

type Option func(*Controller)

func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) {
		c.metrics = r
	}
}

// WithTimeout overrides the per-call timeout for asset listing and
// transaction preparation.
func WithTimeout(t time.Duration) Option {
	return func(c *Controller) {
		c.timeout = t
	}
}

// WithListener registers l to receive every state change.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listeners = append(c.listeners, l)
	}
}

func WithAssetFetcher(f AssetFetcher) Option {
	return func(c *Controller) {
		c.fetcher = f
	}
}

func WithPreparer(p TransactionPreparer) Option {
	return func(c *Controller) {
		c.preparer = p
	}
}

// WithSubmitter replaces the default sign-and-broadcast pipeline.
func WithSubmitter(s settlement.Submitter) Option {
	return func(c *Controller) {
		c.submitter = s
	}
}
