package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpay/stackpay/links"
	"github.com/stackpay/stackpay/stacksapi"
	"github.com/stackpay/stackpay/types"
)

const testRecipient = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"

type fakeConfirmer struct {
	confirmations uint64
	reverted      bool
	err           error
}

func (f *fakeConfirmer) Confirmations(ctx context.Context, txHash common.Hash) (uint64, bool, error) {
	return f.confirmations, f.reverted, f.err
}

type fakeWatcher struct {
	status stacksapi.TxStatus
	err    error
}

func (f *fakeWatcher) TransactionStatus(ctx context.Context, txID string) (stacksapi.TxStatus, error) {
	return f.status, f.err
}

func testConfig() Config {
	return Config{
		PollInterval:          10 * time.Millisecond,
		RequiredConfirmations: 3,
		ConfirmDelay:          30 * time.Second,
		BridgeDelay:           time.Minute,
		StuckTimeout:          time.Hour,
	}
}

// seedLink creates a link and moves it into status with the given chain
// references attached.
func seedLink(t *testing.T, store links.Store, status types.Status, ethTxHash, stacksTxID string) *types.PaymentLink {
	t.Helper()

	link, err := store.Create(context.Background(), types.CreateLinkRequest{
		RecipientAddress: testRecipient,
		Amount:           "10",
	})
	require.NoError(t, err)

	req := types.UpdateLinkRequest{Status: &status}
	if ethTxHash != "" {
		req.EthTxHash = &ethTxHash
	}
	if stacksTxID != "" {
		req.StacksTxID = &stacksTxID
	}
	link, err = store.Update(context.Background(), link.ID, req)
	require.NoError(t, err)
	return link
}

func TestSweepAdvancesConfirmedDeposit(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusConfirming, "0xdeposit", "")

	d := NewDriver(store, &fakeConfirmer{confirmations: 3}, nil, testConfig(), nil, nil)
	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBridging, got.Status)
}

func TestSweepHoldsUnderconfirmedDeposit(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusConfirming, "0xdeposit", "")

	d := NewDriver(store, &fakeConfirmer{confirmations: 2}, nil, testConfig(), nil, nil)
	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirming, got.Status)
}

func TestSweepFailsRevertedDeposit(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusConfirming, "0xdeposit", "")

	d := NewDriver(store, &fakeConfirmer{reverted: true}, nil, testConfig(), nil, nil)
	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
}

func TestSweepCompletesMintedBridge(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusBridging, "0xdeposit", "0xmint")

	d := NewDriver(store, nil, &fakeWatcher{status: stacksapi.TxStatusSuccess}, testConfig(), nil, nil)
	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestSweepFailsAbortedMint(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusBridging, "0xdeposit", "0xmint")

	d := NewDriver(store, nil, &fakeWatcher{status: stacksapi.TxStatusFailed}, testConfig(), nil, nil)
	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
}

func TestSweepHoldsPendingMint(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusBridging, "0xdeposit", "0xmint")

	d := NewDriver(store, nil, &fakeWatcher{status: stacksapi.TxStatusPending}, testConfig(), nil, nil)
	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBridging, got.Status)
}

func TestSweepFallsBackToFixedDelays(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusConfirming, "", "")

	// No chain collaborators bound; progression is purely time-based.
	d := NewDriver(store, nil, nil, testConfig(), nil, nil)
	now := time.Now()
	d.clock = func() time.Time { return now }

	d.Sweep(context.Background())
	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirming, got.Status)

	d.clock = func() time.Time { return now.Add(31 * time.Second) }
	d.Sweep(context.Background())
	got, err = store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBridging, got.Status)

	d.clock = func() time.Time { return got.UpdatedAt.Add(61 * time.Second) }
	d.Sweep(context.Background())
	got, err = store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestSweepFailsStuckLink(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusConfirming, "0xdeposit", "")

	confirmer := &fakeConfirmer{err: errors.New("rpc unavailable")}
	d := NewDriver(store, confirmer, nil, testConfig(), nil, nil)
	d.clock = func() time.Time { return time.Now().Add(2 * time.Hour) }

	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
}

func TestSweepIgnoresSettledLinks(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusConfirming, "0xdeposit", "")

	completed := types.StatusCompleted
	_, err := store.Update(context.Background(), link.ID, types.UpdateLinkRequest{Status: &completed})
	require.NoError(t, err)

	d := NewDriver(store, &fakeConfirmer{confirmations: 10}, nil, testConfig(), nil, nil)
	d.Sweep(context.Background())

	got, err := store.Get(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
}

func TestStartStop(t *testing.T) {
	store := links.NewMemoryStore(links.DefaultStoreConfig())
	link := seedLink(t, store, types.StatusConfirming, "0xdeposit", "")

	d := NewDriver(store, &fakeConfirmer{confirmations: 3}, nil, testConfig(), nil, nil)
	d.Start(context.Background())
	assert.True(t, d.IsRunning())

	require.Eventually(t, func() bool {
		got, err := store.Get(context.Background(), link.ID)
		return err == nil && got.Status == types.StatusBridging
	}, time.Second, 5*time.Millisecond)

	d.Stop()
	assert.False(t, d.IsRunning())
}
