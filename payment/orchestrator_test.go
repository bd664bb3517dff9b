package payment

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpay/stackpay/chain"
	"github.com/stackpay/stackpay/types"
)

const testRecipient = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"

// fakeChain is an in-memory chain.Client. Approvals take effect on the
// allowance only once the receipt is waited on, mirroring the gap between
// submission and settlement.
type fakeChain struct {
	mu sync.Mutex

	balance   *big.Int
	allowance *big.Int

	pendingApproval *big.Int
	approveReverts  bool
	depositErr      error

	calls []string
}

var _ chain.Client = (*fakeChain)(nil)

func newFakeChain(balance, allowance int64) *fakeChain {
	return &fakeChain{
		balance:   big.NewInt(balance),
		allowance: big.NewInt(allowance),
	}
}

func (f *fakeChain) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeChain) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	f.record("balanceOf")
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeChain) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	f.record("allowance")
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeChain) QuoteDeposit(ctx context.Context, remoteDomain uint32, value *big.Int) (*big.Int, error) {
	f.record("quoteDeposit")
	return big.NewInt(0), nil
}

func (f *fakeChain) Approve(ctx context.Context, payer *chain.Account, value *big.Int) (common.Hash, error) {
	f.record("approve")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingApproval = new(big.Int).Set(value)
	return common.HexToHash("0x01"), nil
}

func (f *fakeChain) DepositToRemote(ctx context.Context, payer *chain.Account, params chain.DepositParams) (common.Hash, error) {
	f.record("deposit")
	if f.depositErr != nil {
		return common.Hash{}, f.depositErr
	}
	return common.HexToHash("0x02"), nil
}

func (f *fakeChain) WaitForReceipt(ctx context.Context, txHash common.Hash) (*chain.Receipt, error) {
	f.record("waitForReceipt")
	f.mu.Lock()
	defer f.mu.Unlock()

	status := uint64(1)
	if f.approveReverts {
		status = 0
	} else if f.pendingApproval != nil {
		f.allowance = f.pendingApproval
		f.pendingApproval = nil
	}
	return &chain.Receipt{TxHash: txHash, Status: status, BlockNumber: 100}, nil
}

func (f *fakeChain) Confirmations(ctx context.Context, txHash common.Hash) (uint64, bool, error) {
	return 0, false, nil
}

func (f *fakeChain) Close() {}

func newTestOrchestrator(client chain.Client) *Orchestrator {
	o := NewOrchestrator(client, DefaultConfig(), nil, nil)
	o.ConnectPayer(&chain.Account{Address: common.HexToAddress("0xdead")})
	return o
}

func TestNeedsApprovalBoundary(t *testing.T) {
	// 10 USDC at 6 decimals.
	required := int64(10_000_000)

	tests := []struct {
		name      string
		allowance int64
		want      bool
	}{
		{"one unit short", required - 1, true},
		{"exactly required", required, false},
		{"above required", required + 1, false},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(newFakeChain(required, tt.allowance))
			needs, err := o.NeedsApproval(context.Background(), "10")
			require.NoError(t, err)
			assert.Equal(t, tt.want, needs)
		})
	}
}

func TestHasSufficientBalance(t *testing.T) {
	o := newTestOrchestrator(newFakeChain(10_000_000, 0))

	enough, err := o.HasSufficientBalance(context.Background(), "10")
	require.NoError(t, err)
	assert.True(t, enough)

	enough, err = o.HasSufficientBalance(context.Background(), "10.000001")
	require.NoError(t, err)
	assert.False(t, enough)
}

func TestPayApprovesBeforeDeposit(t *testing.T) {
	fake := newFakeChain(10_000_000, 0)
	o := newTestOrchestrator(fake)

	txHash, err := o.Pay(context.Background(), testRecipient, "10")
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x02"), txHash)
	assert.Equal(t, StepDeposited, o.Step())

	// Settlement must come between approval submission and deposit, and
	// the allowance must be re-read after it.
	var approveAt, settleAt, refreshAt, depositAt int
	for i, call := range fake.calls {
		switch call {
		case "approve":
			approveAt = i
		case "waitForReceipt":
			settleAt = i
		case "allowance":
			refreshAt = i
		case "deposit":
			depositAt = i
		}
	}
	assert.Less(t, approveAt, settleAt)
	assert.Less(t, settleAt, refreshAt)
	assert.Less(t, refreshAt, depositAt)
}

func TestPaySkipsApprovalWhenAllowanceCovers(t *testing.T) {
	fake := newFakeChain(10_000_000, 10_000_000)
	o := newTestOrchestrator(fake)

	_, err := o.Pay(context.Background(), testRecipient, "10")
	require.NoError(t, err)
	assert.NotContains(t, fake.calls, "approve")
}

func TestDepositFiresOnce(t *testing.T) {
	fake := newFakeChain(10_000_000, 10_000_000)
	o := newTestOrchestrator(fake)

	_, err := o.Deposit(context.Background(), testRecipient, "10")
	require.NoError(t, err)

	_, err = o.Deposit(context.Background(), testRecipient, "10")
	require.Error(t, err)

	deposits := 0
	for _, call := range fake.calls {
		if call == "deposit" {
			deposits++
		}
	}
	assert.Equal(t, 1, deposits)
}

func TestDepositFiresAgainAfterReset(t *testing.T) {
	fake := newFakeChain(10_000_000, 10_000_000)
	o := newTestOrchestrator(fake)

	_, err := o.Deposit(context.Background(), testRecipient, "10")
	require.NoError(t, err)

	require.NoError(t, o.Reset())
	assert.Equal(t, StepIdle, o.Step())

	_, err = o.Deposit(context.Background(), testRecipient, "10")
	require.NoError(t, err)
}

func TestPayRequiresConnectedWallet(t *testing.T) {
	o := NewOrchestrator(newFakeChain(0, 0), DefaultConfig(), nil, nil)

	_, err := o.Pay(context.Background(), testRecipient, "10")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrWalletNotConnected))
}

func TestPayRejectsInsufficientBalance(t *testing.T) {
	o := newTestOrchestrator(newFakeChain(500_000, 0))

	_, err := o.Pay(context.Background(), testRecipient, "10")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInsufficientBalance))
	assert.Equal(t, StepError, o.Step())
}

func TestApproveRevertSetsErrorStep(t *testing.T) {
	fake := newFakeChain(10_000_000, 0)
	fake.approveReverts = true
	o := newTestOrchestrator(fake)

	_, err := o.Approve(context.Background(), "10")
	require.Error(t, err)
	assert.Equal(t, StepError, o.Step())
	assert.Error(t, o.Err())

	// The attempt restarts from error after an explicit reset.
	require.NoError(t, o.Reset())
	assert.Equal(t, StepIdle, o.Step())
	assert.NoError(t, o.Err())
}

func TestDepositFailureSetsErrorStep(t *testing.T) {
	fake := newFakeChain(10_000_000, 10_000_000)
	fake.depositErr = errors.New("rpc unavailable")
	o := newTestOrchestrator(fake)

	_, err := o.Pay(context.Background(), testRecipient, "10")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrChainCallFailed))
	assert.Equal(t, StepError, o.Step())
}

func TestPayRejectsInvalidRecipient(t *testing.T) {
	fake := newFakeChain(10_000_000, 10_000_000)
	o := newTestOrchestrator(fake)

	_, err := o.Pay(context.Background(), "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238", "10")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidAddress))
}
