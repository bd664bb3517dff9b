// Package payment orchestrates the payer-side flow for a single payment
// link: allowance and balance checks, the bridge allowance approval, and
// the xReserve deposit that moves USDC toward the Stacks recipient.
package payment

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stackpay/stackpay/chain"
	"github.com/stackpay/stackpay/logger"
	"github.com/stackpay/stackpay/metrics"
	"github.com/stackpay/stackpay/stacks"
	"github.com/stackpay/stackpay/types"
)

// Step tracks where a payment attempt is in its lifecycle.
type Step string

const (
	StepIdle       Step = "idle"
	StepApproving  Step = "approving"
	StepApproved   Step = "approved"
	StepDepositing Step = "depositing"
	StepDeposited  Step = "deposited"
	StepError      Step = "error"
)

// Config carries the chain parameters a payment attempt runs against.
type Config struct {
	// LocalToken is the USDC contract on the source chain.
	LocalToken common.Address

	// RemoteDomain identifies the destination chain to the bridge.
	RemoteDomain uint32

	// TokenDecimals converts link amounts to smallest units.
	TokenDecimals int
}

// DefaultConfig returns the Sepolia-to-Stacks-testnet parameters.
func DefaultConfig() Config {
	return Config{
		LocalToken:    common.HexToAddress(types.USDCSepolia),
		RemoteDomain:  types.StacksRemoteDomain,
		TokenDecimals: types.USDCDecimals,
	}
}

// Orchestrator runs one payment attempt at a time against a connected
// payer account. Chain calls happen outside the internal lock so a slow
// settlement wait never blocks concurrent reads of the current step.
type Orchestrator struct {
	client chain.Client
	cfg    Config
	log    logger.Logger
	rec    metrics.Recorder

	mu           sync.Mutex
	payer        *chain.Account
	step         Step
	lastErr      error
	depositFired bool
}

// NewOrchestrator creates an orchestrator in the idle step. A nil logger
// or recorder falls back to the noop implementation.
func NewOrchestrator(client chain.Client, cfg Config, log logger.Logger, rec metrics.Recorder) *Orchestrator {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		client: client,
		cfg:    cfg,
		log:    log,
		rec:    rec,
		step:   StepIdle,
	}
}

// ConnectPayer binds the signing account for subsequent attempts.
func (o *Orchestrator) ConnectPayer(payer *chain.Account) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.payer = payer
}

// DisconnectPayer unbinds the signing account.
func (o *Orchestrator) DisconnectPayer() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.payer = nil
}

// Step returns the current lifecycle step.
func (o *Orchestrator) Step() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

// Err returns the failure that moved the orchestrator into the error
// step, or nil.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Reset returns the orchestrator to idle so a fresh attempt can start.
// Only idle, error and deposited permit a restart; resetting mid-flight
// would race the in-progress attempt.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.step {
	case StepIdle, StepError, StepDeposited:
		o.step = StepIdle
		o.lastErr = nil
		o.depositFired = false
		return nil
	default:
		return types.NewError(types.ErrInvalidArgument, "payment attempt still in progress")
	}
}

// Balance returns the payer's token balance in smallest units.
func (o *Orchestrator) Balance(ctx context.Context) (*big.Int, error) {
	payer, err := o.connectedPayer()
	if err != nil {
		return nil, err
	}

	balance, err := o.client.BalanceOf(ctx, payer.Address)
	if err != nil {
		return nil, types.WrapError(types.ErrChainCallFailed, "failed to read balance", err)
	}
	return balance, nil
}

// Allowance returns how much the bridge may currently spend for the
// payer, in smallest units.
func (o *Orchestrator) Allowance(ctx context.Context) (*big.Int, error) {
	payer, err := o.connectedPayer()
	if err != nil {
		return nil, err
	}

	allowance, err := o.client.Allowance(ctx, payer.Address)
	if err != nil {
		return nil, types.WrapError(types.ErrChainCallFailed, "failed to read allowance", err)
	}
	return allowance, nil
}

// NeedsApproval reports whether the bridge allowance is below the
// required transfer amount.
func (o *Orchestrator) NeedsApproval(ctx context.Context, amount string) (bool, error) {
	required, err := o.requiredUnits(amount)
	if err != nil {
		return false, err
	}

	allowance, err := o.Allowance(ctx)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(required) < 0, nil
}

// HasSufficientBalance reports whether the payer holds at least the
// required transfer amount.
func (o *Orchestrator) HasSufficientBalance(ctx context.Context, amount string) (bool, error) {
	required, err := o.requiredUnits(amount)
	if err != nil {
		return false, err
	}

	balance, err := o.Balance(ctx)
	if err != nil {
		return false, err
	}
	return balance.Cmp(required) >= 0, nil
}

// QuoteDeposit returns the bridge fee for transferring amount.
func (o *Orchestrator) QuoteDeposit(ctx context.Context, amount string) (*big.Int, error) {
	required, err := o.requiredUnits(amount)
	if err != nil {
		return nil, err
	}

	fee, err := o.client.QuoteDeposit(ctx, o.cfg.RemoteDomain, required)
	if err != nil {
		return nil, types.WrapError(types.ErrChainCallFailed, "failed to quote deposit", err)
	}
	return fee, nil
}

// Approve submits an allowance increase for exactly the required amount
// and blocks until the transaction settles. A reverted approval moves
// the orchestrator to the error step.
func (o *Orchestrator) Approve(ctx context.Context, amount string) (*chain.Receipt, error) {
	payer, err := o.connectedPayer()
	if err != nil {
		return nil, err
	}

	required, err := o.requiredUnits(amount)
	if err != nil {
		return nil, err
	}

	o.setStep(StepApproving)
	o.log.Info("submitting approval", map[string]any{
		"payer":  payer.Address.Hex(),
		"amount": amount,
	})

	txHash, err := o.client.Approve(ctx, payer, required)
	if err != nil {
		return nil, o.fail("failed to submit approval", err)
	}

	receipt, err := o.client.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, o.fail("failed waiting for approval receipt", err)
	}
	if !receipt.Succeeded() {
		return nil, o.fail("approval transaction reverted", nil)
	}

	o.setStep(StepApproved)
	o.rec.IncCounter(metrics.EventPaymentApproved, nil)
	o.log.Info("approval settled", map[string]any{
		"txHash": txHash.Hex(),
		"block":  receipt.BlockNumber,
	})

	return receipt, nil
}

// Deposit encodes the recipient and submits the bridge deposit. The
// deposit fires at most once per attempt; a second call returns the
// one-shot guard error instead of double-spending the allowance.
func (o *Orchestrator) Deposit(ctx context.Context, recipientAddress, amount string) (common.Hash, error) {
	payer, err := o.connectedPayer()
	if err != nil {
		return common.Hash{}, err
	}

	required, err := o.requiredUnits(amount)
	if err != nil {
		return common.Hash{}, err
	}

	recipient, err := stacks.EncodeRecipient(recipientAddress)
	if err != nil {
		return common.Hash{}, err
	}

	o.mu.Lock()
	if o.depositFired {
		o.mu.Unlock()
		return common.Hash{}, types.NewError(types.ErrInvalidArgument, "deposit already submitted for this attempt")
	}
	o.depositFired = true
	o.step = StepDepositing
	o.mu.Unlock()

	o.log.Info("submitting deposit", map[string]any{
		"payer":     payer.Address.Hex(),
		"recipient": recipientAddress,
		"amount":    amount,
	})

	txHash, err := o.client.DepositToRemote(ctx, payer, chain.DepositParams{
		Value:           required,
		RemoteDomain:    o.cfg.RemoteDomain,
		RemoteRecipient: recipient,
		LocalToken:      o.cfg.LocalToken,
		MaxFee:          big.NewInt(0),
		HookData:        []byte{},
	})
	if err != nil {
		return common.Hash{}, o.fail("failed to submit deposit", err)
	}

	o.setStep(StepDeposited)
	o.rec.IncCounter(metrics.EventPaymentDeposit, nil)
	o.log.Info("deposit submitted", map[string]any{"txHash": txHash.Hex()})

	return txHash, nil
}

// Pay runs the full attempt: balance check, approval when the allowance
// is short, and the deposit. The deposit is only attempted after the
// approval has settled and the allowance has been re-read, so a stale
// pre-approval read can never gate the transfer.
func (o *Orchestrator) Pay(ctx context.Context, recipientAddress, amount string) (common.Hash, error) {
	if _, err := o.connectedPayer(); err != nil {
		return common.Hash{}, err
	}

	required, err := o.requiredUnits(amount)
	if err != nil {
		return common.Hash{}, err
	}

	enough, err := o.HasSufficientBalance(ctx, amount)
	if err != nil {
		return common.Hash{}, err
	}
	if !enough {
		return common.Hash{}, o.fail("insufficient balance", types.NewError(types.ErrInsufficientBalance, "payer balance below transfer amount"))
	}

	needs, err := o.NeedsApproval(ctx, amount)
	if err != nil {
		return common.Hash{}, err
	}

	if needs {
		if _, err := o.Approve(ctx, amount); err != nil {
			return common.Hash{}, err
		}

		// The approval settled, but the deposit must run against the
		// on-chain allowance, not the pre-approval read.
		allowance, err := o.Allowance(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		if allowance.Cmp(required) < 0 {
			return common.Hash{}, o.fail("allowance still short after approval", nil)
		}
	}

	return o.Deposit(ctx, recipientAddress, amount)
}

func (o *Orchestrator) connectedPayer() (*chain.Account, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.payer == nil {
		return nil, types.NewError(types.ErrWalletNotConnected, "no payer account connected")
	}
	return o.payer, nil
}

func (o *Orchestrator) requiredUnits(amount string) (*big.Int, error) {
	units, err := types.AmountToUnits(amount, o.cfg.TokenDecimals)
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidArgument, "invalid amount", err)
	}
	return units, nil
}

func (o *Orchestrator) setStep(step Step) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.step = step
}

// fail moves the orchestrator to the error step and returns the wrapped
// cause. The caller must Reset before retrying.
func (o *Orchestrator) fail(message string, cause error) error {
	err := types.WrapError(types.ErrChainCallFailed, message, cause)
	if spErr, ok := cause.(*types.StackPayError); ok {
		err = spErr
	}

	o.mu.Lock()
	o.step = StepError
	o.lastErr = err
	o.mu.Unlock()

	o.rec.IncCounter(metrics.EventPaymentFailed, nil)
	o.log.Error(message, map[string]any{"error": err.Error()})
	return err
}
