package types

import "time"

// Status represents the lifecycle state of a payment link as it moves
// through the bridge pipeline.
type Status string

const (
	StatusPending    Status = "pending"    // link created, payer has not acted
	StatusDepositing Status = "depositing" // payer is submitting the deposit
	StatusConfirming Status = "confirming" // deposit submitted, waiting for Ethereum confirmations
	StatusBridging   Status = "bridging"   // confirmed on Ethereum, bridge is minting on Stacks
	StatusCompleted  Status = "completed"  // funds delivered on Stacks
	StatusFailed     Status = "failed"     // payment or bridge failed
)

// statusRank orders the forward pipeline. failed and completed are terminal.
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusDepositing: 1,
	StatusConfirming: 2,
	StatusBridging:   3,
	StatusCompleted:  4,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further status transitions are accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a stored link in status from may move to to.
// The pipeline is strictly forward: regressions are never accepted and
// terminal states accept nothing. failed is reachable from any non-terminal
// state. Forward jumps over intermediate states are accepted because the
// payer-side orchestrator reports confirming directly once its deposit is
// submitted.
func CanTransition(from, to Status) bool {
	if from.Terminal() || !to.Valid() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return statusRank[to] > statusRank[from]
}

// PaymentLink is the persistent record of a payment request.
type PaymentLink struct {
	// Opaque URL-safe identifier, generated at creation.
	ID string `json:"id"`

	// Stacks address that receives the bridged funds. Immutable.
	RecipientAddress string `json:"recipientAddress"`

	// Requested amount as a decimal USDC string. Immutable.
	Amount string `json:"amount"`

	// Optional merchant annotation.
	Memo string `json:"memo,omitempty"`

	// Current lifecycle status, see CanTransition.
	Status Status `json:"status"`

	// Ethereum deposit transaction hash, set once the payer deposits.
	EthTxHash string `json:"ethTxHash,omitempty"`

	// Stacks mint transaction id, set once the bridge emits it.
	StacksTxID string `json:"stacksTxId,omitempty"`

	// Ethereum address of the paying account.
	PayerAddress string `json:"payerAddress,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Set exactly once, when status reaches completed.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
