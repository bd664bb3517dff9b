// Package links owns the persistent payment link records and enforces the
// status state machine on every mutation.
package links

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stackpay/stackpay/stacks"
	"github.com/stackpay/stackpay/types"
)

// DefaultListLimit caps GET /api/links results.
const DefaultListLimit = 100

// Store is the persistence boundary for payment links.
type Store interface {
	// Create validates the request, generates a fresh id and persists a
	// new pending link.
	Create(ctx context.Context, req types.CreateLinkRequest) (*types.PaymentLink, error)

	// Get returns the link for id or a not_found error.
	Get(ctx context.Context, id string) (*types.PaymentLink, error)

	// Update applies the provided fields, validates any status change
	// against the state machine and refreshes updatedAt. A single call is
	// atomic with respect to other Update calls on the same id.
	Update(ctx context.Context, id string, req types.UpdateLinkRequest) (*types.PaymentLink, error)

	// List returns up to limit links, most recent first. limit <= 0 uses
	// DefaultListLimit.
	List(ctx context.Context, limit int) ([]*types.PaymentLink, error)

	// ListByStatus returns all links currently in one of the given
	// statuses, oldest first. Used by the progression driver.
	ListByStatus(ctx context.Context, statuses ...types.Status) ([]*types.PaymentLink, error)
}

// StoreConfig carries the validation limits injected at construction.
type StoreConfig struct {
	// MinDeposit is the smallest accepted amount in whole USDC.
	MinDeposit decimal.Decimal

	// MemoMaxLength bounds the merchant memo.
	MemoMaxLength int
}

// DefaultStoreConfig returns the bridge's testnet limits.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MinDeposit:    decimal.NewFromInt(types.MinDepositUSDC),
		MemoMaxLength: types.MemoMaxLength,
	}
}

// validateCreate checks the recipient address and amount before anything
// touches storage.
func validateCreate(req types.CreateLinkRequest, cfg StoreConfig) error {
	if !stacks.Validate(req.RecipientAddress) {
		return types.NewError(types.ErrInvalidAddress, "invalid Stacks address")
	}

	amount, err := types.ParseAmount(req.Amount)
	if err != nil {
		return types.WrapError(types.ErrAmountTooLow, "invalid amount", err)
	}
	if amount.LessThan(cfg.MinDeposit) {
		return types.NewError(types.ErrAmountTooLow,
			fmt.Sprintf("minimum amount is %s USDC", cfg.MinDeposit))
	}

	if cfg.MemoMaxLength > 0 && len(req.Memo) > cfg.MemoMaxLength {
		return types.NewError(types.ErrInvalidArgument,
			fmt.Sprintf("memo exceeds %d characters", cfg.MemoMaxLength))
	}

	return nil
}

// newLink builds a fresh pending link for the request.
func newLink(req types.CreateLinkRequest, now time.Time) (*types.PaymentLink, error) {
	id, err := NewLinkID()
	if err != nil {
		return nil, types.WrapError(types.ErrInternal, "failed to generate link id", err)
	}

	return &types.PaymentLink{
		ID:               id,
		RecipientAddress: req.RecipientAddress,
		Amount:           req.Amount,
		Memo:             req.Memo,
		Status:           types.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// applyUpdate mutates link in place according to req. Status changes are
// validated against the state machine: terminal links accept nothing and
// the pipeline only moves forward. completedAt is stamped exactly once,
// when the status reaches completed.
func applyUpdate(link *types.PaymentLink, req types.UpdateLinkRequest, now time.Time) error {
	if req.Empty() {
		return types.NewError(types.ErrNoFieldsProvided, "no fields to update")
	}

	if link.Status.Terminal() {
		return types.NewError(types.ErrInvalidTransition,
			fmt.Sprintf("link is already %s", link.Status))
	}

	if req.Status != nil {
		next := *req.Status
		if !next.Valid() {
			return types.NewError(types.ErrInvalidArgument,
				fmt.Sprintf("unknown status %q", next))
		}
		if !types.CanTransition(link.Status, next) {
			return types.NewError(types.ErrInvalidTransition,
				fmt.Sprintf("cannot move from %s to %s", link.Status, next))
		}
		link.Status = next
		if next == types.StatusCompleted && link.CompletedAt == nil {
			completed := now
			link.CompletedAt = &completed
		}
	}

	if req.EthTxHash != nil {
		link.EthTxHash = *req.EthTxHash
	}
	if req.StacksTxID != nil {
		link.StacksTxID = *req.StacksTxID
	}
	if req.PayerAddress != nil {
		link.PayerAddress = *req.PayerAddress
	}

	link.UpdatedAt = now
	return nil
}
