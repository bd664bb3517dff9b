// Package stacksapi looks up transaction settlement on the Stacks chain
// through a Hiro API node.
package stacksapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stackpay/stackpay/logger"
	"github.com/stackpay/stackpay/types"
)

const (
	requestTimeout = 15 * time.Second

	// Cap on the response body read (1MB).
	maxResponseSize = 1 << 20
)

// TxStatus is the settlement state of a Stacks transaction.
type TxStatus string

const (
	// TxStatusPending covers mempool and not-yet-seen transactions.
	TxStatusPending TxStatus = "pending"

	// TxStatusSuccess means the transaction was mined and applied.
	TxStatusSuccess TxStatus = "success"

	// TxStatusFailed covers aborted and dropped transactions.
	TxStatusFailed TxStatus = "failed"
)

// txResponse is the subset of the Hiro transaction payload we read.
type txResponse struct {
	TxID     string `json:"tx_id"`
	TxStatus string `json:"tx_status"`
}

// Client queries a Hiro API node.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewClient creates a client against baseURL, defaulting to the public
// testnet node when empty.
func NewClient(baseURL string, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = types.StacksTestnetAPI
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		log: log,
	}
}

// TransactionStatus returns the settlement state of txID. A transaction
// the node has not seen yet reports pending rather than an error, since
// bridge mints appear on Stacks with a delay.
func (c *Client) TransactionStatus(ctx context.Context, txID string) (TxStatus, error) {
	url := fmt.Sprintf("%s/extended/v1/tx/%s", c.baseURL, txID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", types.WrapError(types.ErrChainCallFailed, "failed to build Stacks API request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", types.WrapError(types.ErrChainCallFailed, "Stacks API request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return TxStatusPending, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", types.NewError(types.ErrChainCallFailed,
			fmt.Sprintf("Stacks API returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", types.WrapError(types.ErrChainCallFailed, "failed to read Stacks API response", err)
	}

	var tx txResponse
	if err := json.Unmarshal(body, &tx); err != nil {
		return "", types.WrapError(types.ErrChainCallFailed, "failed to parse Stacks API response", err)
	}

	return mapTxStatus(tx.TxStatus), nil
}

// mapTxStatus folds the Hiro status vocabulary into the three states the
// progression driver acts on.
func mapTxStatus(status string) TxStatus {
	switch status {
	case "success":
		return TxStatusSuccess
	case "abort_by_response", "abort_by_post_condition":
		return TxStatusFailed
	default:
		if strings.HasPrefix(status, "dropped") {
			return TxStatusFailed
		}
		return TxStatusPending
	}
}
