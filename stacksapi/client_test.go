package stacksapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionStatus(t *testing.T) {
	tests := []struct {
		name       string
		hiroStatus string
		want       TxStatus
	}{
		{"mined success", "success", TxStatusSuccess},
		{"mempool", "pending", TxStatusPending},
		{"abort by response", "abort_by_response", TxStatusFailed},
		{"abort by post condition", "abort_by_post_condition", TxStatusFailed},
		{"dropped replace by fee", "dropped_replace_by_fee", TxStatusFailed},
		{"dropped stale garbage collect", "dropped_stale_garbage_collect", TxStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/extended/v1/tx/0xabc", r.URL.Path)
				fmt.Fprintf(w, `{"tx_id":"0xabc","tx_status":%q}`, tt.hiroStatus)
			}))
			defer server.Close()

			client := NewClient(server.URL, nil)
			status, err := client.TransactionStatus(context.Background(), "0xabc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestTransactionStatusUnknownTxIsPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	status, err := client.TransactionStatus(context.Background(), "0xmissing")
	require.NoError(t, err)
	assert.Equal(t, TxStatusPending, status)
}

func TestTransactionStatusServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.TransactionStatus(context.Background(), "0xabc")
	require.Error(t, err)
}
