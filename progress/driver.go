// Package progress advances payment links through the tail of the
// pipeline. Once a payer has handed off a deposit the link sits in
// confirming or bridging with nobody driving it; the driver polls the
// chains and moves it to completed, or to failed when a transaction
// reverts, aborts or times out.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stackpay/stackpay/links"
	"github.com/stackpay/stackpay/logger"
	"github.com/stackpay/stackpay/metrics"
	"github.com/stackpay/stackpay/stacksapi"
	"github.com/stackpay/stackpay/types"
)

// EthConfirmer reports how deep an Ethereum transaction is buried.
// chain.Client satisfies it.
type EthConfirmer interface {
	Confirmations(ctx context.Context, txHash common.Hash) (uint64, bool, error)
}

// StacksWatcher reports the settlement state of a Stacks transaction.
// stacksapi.Client satisfies it.
type StacksWatcher interface {
	TransactionStatus(ctx context.Context, txID string) (stacksapi.TxStatus, error)
}

// Config controls the driver's polling and fallback behavior.
type Config struct {
	// PollInterval between sweeps over the in-flight links.
	PollInterval time.Duration

	// RequiredConfirmations before confirming advances to bridging.
	RequiredConfirmations uint64

	// ConfirmDelay advances confirming links when no EthConfirmer is
	// bound or the link carries no deposit hash.
	ConfirmDelay time.Duration

	// BridgeDelay advances bridging links when no StacksWatcher is
	// bound or the link carries no mint transaction id.
	BridgeDelay time.Duration

	// StuckTimeout fails links that have sat in one in-flight status
	// for too long. Zero disables the timeout.
	StuckTimeout time.Duration
}

// DefaultConfig returns testnet-friendly polling parameters.
func DefaultConfig() Config {
	return Config{
		PollInterval:          15 * time.Second,
		RequiredConfirmations: 3,
		ConfirmDelay:          30 * time.Second,
		BridgeDelay:           time.Duration(types.EstimatedPegInMinutes) * time.Minute,
		StuckTimeout:          2 * time.Hour,
	}
}

// Driver sweeps the store for in-flight links and advances them.
type Driver struct {
	store links.Store
	eth   EthConfirmer
	stx   StacksWatcher
	cfg   Config
	log   logger.Logger
	rec   metrics.Recorder

	clock func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewDriver creates a driver. eth and stx are optional; a nil
// collaborator degrades that stage to the configured fixed delay.
func NewDriver(store links.Store, eth EthConfirmer, stx StacksWatcher, cfg Config, log logger.Logger, rec metrics.Recorder) *Driver {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Driver{
		store:    store,
		eth:      eth,
		stx:      stx,
		cfg:      cfg,
		log:      log,
		rec:      rec,
		clock:    time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start launches the polling loop. Calling Start on a running driver is
// a no-op.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.log.Info("starting status progression driver", map[string]any{
		"pollInterval":          d.cfg.PollInterval.String(),
		"requiredConfirmations": d.cfg.RequiredConfirmations,
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

// Stop halts the loop and waits for the in-flight sweep to finish.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()

		close(d.stopChan)
		d.wg.Wait()
		d.log.Info("status progression driver stopped", nil)
	})
}

// IsRunning reports whether the loop is active.
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) run(ctx context.Context) {
	d.Sweep(ctx)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Sweep(ctx)
		}
	}
}

// Sweep processes every confirming and bridging link once. Exported so
// callers can drive progression synchronously in tests and tooling.
func (d *Driver) Sweep(ctx context.Context) {
	inFlight, err := d.store.ListByStatus(ctx, types.StatusConfirming, types.StatusBridging)
	if err != nil {
		d.log.Error("failed to list in-flight links", map[string]any{"error": err.Error()})
		return
	}

	for _, link := range inFlight {
		var stepErr error
		switch link.Status {
		case types.StatusConfirming:
			stepErr = d.stepConfirming(ctx, link)
		case types.StatusBridging:
			stepErr = d.stepBridging(ctx, link)
		}
		if stepErr != nil {
			d.log.Warn("failed to progress link", map[string]any{
				"linkId": link.ID,
				"status": string(link.Status),
				"error":  stepErr.Error(),
			})
		}
	}
}

// stepConfirming watches the Ethereum deposit. A revert fails the link;
// enough confirmations advance it to bridging.
func (d *Driver) stepConfirming(ctx context.Context, link *types.PaymentLink) error {
	if d.eth == nil || link.EthTxHash == "" {
		if d.elapsed(link) >= d.cfg.ConfirmDelay {
			return d.advance(ctx, link, types.StatusBridging)
		}
		return nil
	}

	confirmations, reverted, err := d.eth.Confirmations(ctx, common.HexToHash(link.EthTxHash))
	if err != nil {
		return d.failIfStuck(ctx, link, err)
	}
	if reverted {
		d.log.Warn("deposit transaction reverted", map[string]any{
			"linkId": link.ID,
			"txHash": link.EthTxHash,
		})
		return d.advance(ctx, link, types.StatusFailed)
	}
	if confirmations >= d.cfg.RequiredConfirmations {
		return d.advance(ctx, link, types.StatusBridging)
	}

	return d.failIfStuck(ctx, link, nil)
}

// stepBridging watches the Stacks mint. An abort fails the link; a
// successful mint completes it.
func (d *Driver) stepBridging(ctx context.Context, link *types.PaymentLink) error {
	if d.stx == nil || link.StacksTxID == "" {
		if d.elapsed(link) >= d.cfg.BridgeDelay {
			return d.advance(ctx, link, types.StatusCompleted)
		}
		return d.failIfStuck(ctx, link, nil)
	}

	status, err := d.stx.TransactionStatus(ctx, link.StacksTxID)
	if err != nil {
		return d.failIfStuck(ctx, link, err)
	}

	switch status {
	case stacksapi.TxStatusSuccess:
		return d.advance(ctx, link, types.StatusCompleted)
	case stacksapi.TxStatusFailed:
		d.log.Warn("bridge mint failed on Stacks", map[string]any{
			"linkId":     link.ID,
			"stacksTxId": link.StacksTxID,
		})
		return d.advance(ctx, link, types.StatusFailed)
	default:
		return d.failIfStuck(ctx, link, nil)
	}
}

func (d *Driver) advance(ctx context.Context, link *types.PaymentLink, to types.Status) error {
	_, err := d.store.Update(ctx, link.ID, types.UpdateLinkRequest{Status: &to})
	if err != nil {
		// Another writer may have advanced the link between the list
		// and this update. That is not a sweep failure.
		if types.IsCode(err, types.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	d.rec.IncCounter(metrics.EventStatusAdvanced, map[string]string{"status": string(to)})
	d.log.Info("advanced link status", map[string]any{
		"linkId": link.ID,
		"from":   string(link.Status),
		"to":     string(to),
	})
	return nil
}

// failIfStuck fails links that exceeded the stuck timeout; otherwise it
// leaves the link for the next sweep and reports cause, if any.
func (d *Driver) failIfStuck(ctx context.Context, link *types.PaymentLink, cause error) error {
	if d.cfg.StuckTimeout > 0 && d.elapsed(link) >= d.cfg.StuckTimeout {
		d.log.Warn("link exceeded progression timeout", map[string]any{
			"linkId": link.ID,
			"status": string(link.Status),
		})
		if err := d.advance(ctx, link, types.StatusFailed); err != nil {
			return err
		}
		return cause
	}
	return cause
}

// elapsed is the time the link has spent in its current status.
func (d *Driver) elapsed(link *types.PaymentLink) time.Duration {
	return d.clock().Sub(link.UpdatedAt)
}
