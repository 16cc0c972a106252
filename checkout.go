// Package checkout drives a wallet-paid checkout session on Solana: it lists
// the connected wallet's fungible tokens, prices the cart in the chosen token
// and settles the payment on chain.
package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/catalog"
	"github.com/vitwit/checkout/clients"
	"github.com/vitwit/checkout/inventory"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/preparer"
	"github.com/vitwit/checkout/pricing"
	"github.com/vitwit/checkout/settlement"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
	"github.com/vitwit/checkout/wallet"
)

// ErrSuperseded is returned by a request whose result was discarded because a
// newer request changed the session first.
var ErrSuperseded = errors.New("checkout: request superseded")

// AssetFetcher lists the fungible holdings of a wallet.
type AssetFetcher interface {
	FetchAssets(ctx context.Context, owner string) ([]types.AssetRecord, error)
}

// TransactionPreparer obtains an unsigned payment transaction.
type TransactionPreparer interface {
	PrepareTransaction(ctx context.Context, payer, mint string, amount decimal.Decimal) (*types.PreparedTransaction, error)
}

// Dispatcher is the set of user actions a presentation layer forwards to the
// controller.
type Dispatcher interface {
	Connect(ctx context.Context, w wallet.Wallet) error
	Disconnect()
	SelectAsset(mint string) error
	Submit(ctx context.Context) (*types.SubmissionResult, error)
	Snapshot() Snapshot
}

// Listener is called with a fresh snapshot after every state change.
// Listeners run outside the controller lock, so concurrent actions may
// deliver snapshots out of order; a snapshot whose Version is not greater
// than the last one seen is stale.
type Listener func(Snapshot)

var _ Dispatcher = (*Controller)(nil)

type session struct {
	phase    Phase
	status   Status
	wallet   wallet.Wallet
	assets   []types.AssetRecord
	selected *types.SelectedAsset
	notice   *Notice
	result   *types.SubmissionResult
}

// Controller owns one checkout session. All methods are safe for concurrent
// use; the lock is never held across a network call.
type Controller struct {
	catalog   *catalog.Catalog
	network   types.Network
	sessionID string
	timeout   time.Duration

	fetcher   AssetFetcher
	preparer  TransactionPreparer
	submitter settlement.Submitter
	closers   []func()

	logger    logger.Logger
	metrics   metrics.Recorder
	listeners []Listener

	mu         sync.Mutex
	generation uint64
	version    uint64
	state      session
}

// New creates a controller for cat. Components not supplied through options
// are built from cfg.
func New(cat *catalog.Catalog, cfg *types.Config, opts ...Option) (*Controller, error) {
	if cat == nil {
		return nil, &types.CheckoutError{Code: types.ErrConfigError, Message: "catalog is required"}
	}
	if cfg == nil {
		return nil, &types.CheckoutError{Code: types.ErrConfigError, Message: "config is required"}
	}
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	conf := cfg.WithDefaults()

	c := &Controller{
		catalog:   cat,
		network:   conf.Network,
		sessionID: uuid.NewString(),
		timeout:   conf.Timeout,
		state:     session{phase: PhaseIdle, status: StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		log, err := logger.NewZapLogger(conf.LogLevel)
		if err != nil {
			return nil, types.NewError(types.ErrConfigError, err, "failed to create logger")
		}
		c.logger = log
	}
	c.logger = c.logger.With(map[string]any{
		"session": c.sessionID,
		"network": conf.Network.String(),
	})

	if c.metrics == nil {
		if conf.EnableMetrics {
			rec, err := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
			if err != nil {
				return nil, types.NewError(types.ErrConfigError, err, "failed to register metrics")
			}
			c.metrics = rec
		} else {
			c.metrics = metrics.NoopRecorder{}
		}
	}

	if err := c.buildComponents(conf); err != nil {
		c.Close()
		return nil, err
	}

	c.logger.Info("checkout session created", map[string]any{
		"items": cat.Len(),
		"total": cat.TotalReferencePrice().String(),
	})
	return c, nil
}

func (c *Controller) buildComponents(conf types.Config) error {
	if c.fetcher == nil {
		f, err := inventory.NewFetcher(conf.IndexerURL, conf.IndexerAPIKey, conf.Timeout, inventory.WithLogger(c.logger))
		if err != nil {
			return err
		}
		c.fetcher = f
	}

	if c.preparer == nil {
		c.preparer = preparer.NewClient(conf.PreparerURL, conf.PreparerToken, conf.Timeout, preparer.WithLogger(c.logger))
	}

	if c.submitter == nil {
		maxPolls := uint64(conf.ConfirmTimeout / conf.PollInterval)
		if maxPolls == 0 {
			maxPolls = 1
		}
		sol, err := clients.NewSolanaClient(conf.Network, conf.RPCURL,
			clients.WithMaxRetries(conf.BroadcastMaxRetries),
			clients.WithPolling(conf.PollInterval, maxPolls),
			clients.WithLogger(c.logger),
		)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, sol.Close)
		c.submitter = settlement.NewPipeline(sol, conf.Timeout+conf.ConfirmTimeout, settlement.WithLogger(c.logger))
	}
	return nil
}

// Connect attaches w to the session and lists its fungible assets. A
// reconnect or selection made while the listing is in flight wins over it.
func (c *Controller) Connect(ctx context.Context, w wallet.Wallet) error {
	if w == nil || !w.Connected() {
		return &types.CheckoutError{Code: types.ErrWalletNotConnected, Message: "wallet is not connected"}
	}
	owner := w.PublicKey().String()

	c.mu.Lock()
	if c.state.phase == PhaseSubmitting {
		c.mu.Unlock()
		return &types.CheckoutError{Code: types.ErrInvalidState, Message: "a payment is in progress"}
	}
	c.generation++
	gen := c.generation

	next := session{phase: PhaseFetchingAssets, status: StatusLoading, wallet: w}
	if c.state.wallet != nil && c.state.wallet.PublicKey().String() == owner {
		next.assets = c.state.assets
		next.selected = c.state.selected
	}
	c.state = next
	snap := c.publishLocked()
	c.mu.Unlock()
	c.emit(snap)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	assets, err := c.fetcher.FetchAssets(ctx, owner)
	c.metrics.ObserveLatency(metrics.OpFetchAssets, time.Since(start), c.labels())

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.metrics.IncCounter(metrics.EventFetchDiscarded, c.labels())
		c.logger.Debug("discarding superseded asset listing", map[string]any{"owner": owner})
		return ErrSuperseded
	}

	if err != nil {
		c.state.assets = nil
		c.state.selected = nil
		c.state.phase = PhaseReady
		c.state.status = StatusError
		c.state.notice = noticeFromError(err)
		snap = c.publishLocked()
		c.mu.Unlock()

		c.metrics.IncCounter(metrics.EventFetchFailed, c.labels())
		c.logger.Error("failed to list wallet assets", map[string]any{"owner": owner, "error": err})
		c.emit(snap)
		return err
	}

	c.state.assets = assets
	c.state.selected = c.reselectLocked()
	c.state.phase = PhaseReady
	c.state.status = StatusIdle
	if len(assets) == 0 {
		c.state.notice = &Notice{Level: NoticeInfo, Message: "No tokens found in this wallet"}
	} else if c.state.selected == nil {
		c.state.notice = &Notice{
			Level:   NoticeWarning,
			Code:    types.ErrValuationUnavailable,
			Message: "None of your tokens has a price available",
		}
	}
	snap = c.publishLocked()
	c.mu.Unlock()

	c.metrics.IncCounter(metrics.EventFetchSucceeded, c.labels())
	c.logger.Info("wallet assets listed", map[string]any{"owner": owner, "count": len(assets)})
	c.emit(snap)
	return nil
}

// reselectLocked keeps the current selection if its mint is still held,
// otherwise it picks the first asset that can be priced.
func (c *Controller) reselectLocked() *types.SelectedAsset {
	total := c.catalog.TotalReferencePrice()

	if cur := c.state.selected; cur != nil {
		for _, a := range c.state.assets {
			if a.Mint == cur.Mint {
				if sel, err := pricing.Select(total, a); err == nil {
					return sel
				}
			}
		}
	}
	for _, a := range c.state.assets {
		if sel, err := pricing.Select(total, a); err == nil {
			return sel
		}
	}
	return nil
}

// Disconnect ends the wallet session and clears everything derived from it.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	c.generation++
	c.state = session{phase: PhaseIdle, status: StatusIdle}
	snap := c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("wallet disconnected", nil)
	c.emit(snap)
}

// SelectAsset makes the asset with mint the payment asset. The required
// quantity is recomputed and replaces any previous selection.
func (c *Controller) SelectAsset(mint string) error {
	c.mu.Lock()
	if c.state.wallet == nil {
		c.mu.Unlock()
		return &types.CheckoutError{Code: types.ErrWalletNotConnected, Message: "connect a wallet first"}
	}
	switch c.state.phase {
	case PhaseSubmitting:
		c.mu.Unlock()
		return &types.CheckoutError{Code: types.ErrInvalidState, Message: "a payment is in progress"}
	case PhaseSucceeded:
		c.mu.Unlock()
		return &types.CheckoutError{Code: types.ErrInvalidState, Message: "payment already completed"}
	}

	var (
		asset types.AssetRecord
		found bool
	)
	for _, a := range c.state.assets {
		if a.Mint == mint {
			asset, found = a, true
			break
		}
	}
	if !found {
		c.mu.Unlock()
		return &types.CheckoutError{
			Code:    types.ErrInvalidState,
			Message: "asset is not held by the connected wallet",
			Data:    types.ExtraData{"mint": mint},
		}
	}

	sel, err := pricing.Select(c.catalog.TotalReferencePrice(), asset)
	if err != nil {
		c.state.notice = noticeFromError(err)
		c.state.notice.Level = NoticeWarning
		snap := c.publishLocked()
		c.mu.Unlock()
		c.emit(snap)
		return err
	}

	c.generation++
	c.state.selected = sel
	c.state.notice = nil
	c.state.phase = PhaseReady
	c.state.status = StatusIdle
	snap := c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug("payment asset selected", map[string]any{
		"mint":     sel.Mint,
		"quantity": sel.RequiredQuantity.String(),
	})
	c.emit(snap)
	return nil
}

// Submit prepares, signs and settles the payment for the current selection.
// On failure the session returns to Ready so the user can retry.
func (c *Controller) Submit(ctx context.Context) (*types.SubmissionResult, error) {
	c.mu.Lock()
	if err := c.submittableLocked(); err != nil {
		c.state.notice = noticeFromError(err)
		c.state.notice.Level = NoticeWarning
		snap := c.publishLocked()
		c.mu.Unlock()

		c.metrics.IncCounter(metrics.EventSubmitRejected, c.labels())
		c.emit(snap)
		return nil, err
	}

	gen := c.generation
	w := c.state.wallet
	sel := *c.state.selected
	c.state.phase = PhaseSubmitting
	c.state.status = StatusLoading
	c.state.notice = nil
	c.state.result = nil
	snap := c.publishLocked()
	c.mu.Unlock()
	c.emit(snap)

	payer := w.PublicKey().String()
	total := c.catalog.TotalReferencePrice()
	log := c.logger.With(map[string]any{"payer": payer, "mint": sel.Mint})
	log.Info("submitting payment", map[string]any{
		"amount":   total.String(),
		"quantity": sel.RequiredQuantity.String(),
	})

	start := time.Now()
	result, err := c.settle(ctx, w, payer, sel.Mint, total)
	c.metrics.ObserveLatency(metrics.OpSubmit, time.Since(start), c.labels())

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Warn("session changed during payment", map[string]any{"error": err})
		return result, err
	}

	c.state.result = result
	if err != nil {
		c.state.phase = PhaseFailed
		c.state.status = StatusError
		c.state.notice = noticeFromError(err)
		failed := c.publishLocked()
		c.state.phase = PhaseReady
		ready := c.publishLocked()
		c.mu.Unlock()

		c.metrics.IncCounter(metrics.EventSubmitFailed, c.labels())
		if types.IsCode(err, types.ErrUserRejected) {
			log.Info("payment cancelled by user", nil)
		} else {
			log.Error("payment failed", map[string]any{"error": err})
		}
		c.emit(failed)
		c.emit(ready)
		return result, err
	}

	c.state.phase = PhaseSucceeded
	c.state.status = StatusSuccess
	c.state.notice = &Notice{
		Level:   NoticeSuccess,
		Message: "Payment confirmed",
		Link:    result.ExplorerURL,
	}
	snap = c.publishLocked()
	c.mu.Unlock()

	c.metrics.IncCounter(metrics.EventSubmitSucceeded, c.labels())
	log.Info("payment confirmed", map[string]any{
		"signature": result.Signature,
		"slot":      result.Slot,
	})
	c.emit(snap)
	return result, nil
}

func (c *Controller) settle(
	ctx context.Context,
	w wallet.Wallet,
	payer, mint string,
	amount decimal.Decimal,
) (*types.SubmissionResult, error) {
	prepCtx, cancel := context.WithTimeout(ctx, c.timeout)
	prepared, err := c.preparer.PrepareTransaction(prepCtx, payer, mint, amount)
	cancel()
	if err != nil {
		return nil, err
	}
	return c.submitter.Submit(ctx, prepared, w)
}

func (c *Controller) submittableLocked() error {
	switch {
	case c.state.wallet == nil || !c.state.wallet.Connected():
		return &types.CheckoutError{Code: types.ErrWalletNotConnected, Message: "Connect your wallet to pay"}
	case c.state.selected == nil:
		return &types.CheckoutError{Code: types.ErrInvalidState, Message: "Select a token to pay with"}
	case c.state.phase == PhaseSucceeded:
		return &types.CheckoutError{Code: types.ErrInvalidState, Message: "payment already completed"}
	case c.state.phase != PhaseReady:
		return &types.CheckoutError{
			Code:    types.ErrInvalidState,
			Message: "checkout is busy",
			Data:    types.ExtraData{"phase": string(c.state.phase)},
		}
	}
	return nil
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// publishLocked records a state change and returns the snapshot to emit.
func (c *Controller) publishLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		SessionID:           c.sessionID,
		Version:             c.version,
		Phase:               c.state.phase,
		Status:              c.state.status,
		Items:               c.catalog.Items(),
		TotalReferencePrice: c.catalog.TotalReferencePrice(),
		Assets:              append([]types.AssetRecord(nil), c.state.assets...),
	}
	if w := c.state.wallet; w != nil {
		s.Connected = w.Connected()
		s.Owner = w.PublicKey().String()
	}
	if c.state.selected != nil {
		sel := *c.state.selected
		s.Selected = &sel
	}
	if c.state.notice != nil {
		n := *c.state.notice
		s.Notice = &n
	}
	if c.state.result != nil {
		r := *c.state.result
		s.LastResult = &r
	}
	return s
}

func (c *Controller) emit(s Snapshot) {
	for _, l := range c.listeners {
		l(s)
	}
}

func (c *Controller) labels() map[string]string {
	return map[string]string{"network": c.network.String()}
}

// Close releases the network clients created by New.
func (c *Controller) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
	c.closers = nil
}

// Version information
const Version = "1.0.0"
