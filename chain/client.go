// Package chain provides the Ethereum interaction boundary used by the
// payment orchestrator and the status progression driver.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a payer account able to sign transactions.
type Account struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// NewAccountFromHex derives an account from a hex-encoded private key.
func NewAccountFromHex(privateKeyHex string) (*Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Account{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Receipt is the settlement result of a submitted transaction.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// DepositParams are the arguments of the xReserve depositToRemote call.
type DepositParams struct {
	// Transfer amount in the token's smallest unit.
	Value *big.Int

	// Bridge domain identifier of the destination chain.
	RemoteDomain uint32

	// Destination address in the bridge's 32-byte recipient layout.
	RemoteRecipient [32]byte

	// Token being deposited on the source chain.
	LocalToken common.Address

	// Fee ceiling; zero lets the bridge apply its default.
	MaxFee *big.Int

	// Post-mint hook payload; empty for plain transfers.
	HookData []byte
}

// Client is the contract surface the orchestrator and driver depend on.
type Client interface {
	// BalanceOf returns the token balance of account.
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)

	// Allowance returns how much the bridge may spend on behalf of owner.
	Allowance(ctx context.Context, owner common.Address) (*big.Int, error)

	// QuoteDeposit returns the bridge fee for a deposit of value.
	QuoteDeposit(ctx context.Context, remoteDomain uint32, value *big.Int) (*big.Int, error)

	// Approve submits an allowance-increase transaction for the bridge.
	Approve(ctx context.Context, payer *Account, value *big.Int) (common.Hash, error)

	// DepositToRemote submits the bridge deposit transaction.
	DepositToRemote(ctx context.Context, payer *Account, params DepositParams) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is mined or ctx ends.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)

	// Confirmations returns how many blocks deep the transaction is, and
	// whether it reverted. A transaction that is not yet mined reports
	// zero confirmations.
	Confirmations(ctx context.Context, txHash common.Hash) (uint64, bool, error)

	// Close releases the underlying connection.
	Close()
}
