// Package api exposes the payment link service over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackpay/stackpay/links"
	"github.com/stackpay/stackpay/logger"
	"github.com/stackpay/stackpay/metrics"
	"github.com/stackpay/stackpay/stacks"
	"github.com/stackpay/stackpay/types"
)

// LinkHandler serves the /api/links endpoints.
type LinkHandler struct {
	store links.Store
	log   logger.Logger
	rec   metrics.Recorder
}

// NewLinkHandler creates a handler over store. A nil logger or recorder
// falls back to the noop implementation.
func NewLinkHandler(store links.Store, log logger.Logger, rec metrics.Recorder) *LinkHandler {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &LinkHandler{store: store, log: log, rec: rec}
}

// CreateLink handles POST /api/links.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req types.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, types.WrapError(types.ErrInvalidArgument, "invalid request body", err))
		return
	}

	link, err := h.store.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.rec.IncCounter(metrics.EventLinkCreated, nil)
	h.log.Info("payment link created", map[string]any{
		"linkId":    link.ID,
		"recipient": link.RecipientAddress,
		"amount":    link.Amount,
	})

	c.JSON(http.StatusOK, types.LinkResponse{Success: true, Link: link, Explorer: explorerLinks(link)})
}

// GetLink handles GET /api/links/:id.
func (h *LinkHandler) GetLink(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.respondError(c, types.NewError(types.ErrInvalidArgument, "link id is required"))
		return
	}

	link, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.LinkResponse{Success: true, Link: link, Explorer: explorerLinks(link)})
}

// UpdateLink handles PATCH /api/links/:id.
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.respondError(c, types.NewError(types.ErrInvalidArgument, "link id is required"))
		return
	}

	var req types.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, types.WrapError(types.ErrInvalidArgument, "invalid request body", err))
		return
	}

	link, err := h.store.Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.rec.IncCounter(metrics.EventLinkUpdated, map[string]string{"status": string(link.Status)})

	c.JSON(http.StatusOK, types.LinkResponse{Success: true, Link: link, Explorer: explorerLinks(link)})
}

// ListLinks handles GET /api/links.
func (h *LinkHandler) ListLinks(c *gin.Context) {
	found, err := h.store.List(c.Request.Context(), links.DefaultListLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.LinkListResponse{Success: true, Links: found})
}

// explorerLinks builds block-explorer URLs for whatever chain references
// the link carries.
func explorerLinks(link *types.PaymentLink) *types.ExplorerLinks {
	out := &types.ExplorerLinks{
		Recipient: stacks.AddressExplorerURL(link.RecipientAddress, true),
	}
	if link.EthTxHash != "" {
		out.EthTx = fmt.Sprintf("%s/tx/%s", types.SepoliaExplorerURL, link.EthTxHash)
	}
	if link.StacksTxID != "" {
		out.StacksTx = stacks.TxExplorerURL(link.StacksTxID, true)
	}
	return out
}

// respondError maps the error taxonomy onto HTTP statuses. Unexpected
// failures are logged and reported generically.
func (h *LinkHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var spErr *types.StackPayError
	if errors.As(err, &spErr) {
		switch spErr.Code {
		case types.ErrInvalidAddress, types.ErrAmountTooLow, types.ErrNoFieldsProvided, types.ErrInvalidArgument:
			status = http.StatusBadRequest
			message = spErr.Message
		case types.ErrNotFound:
			status = http.StatusNotFound
			message = spErr.Message
		case types.ErrInvalidTransition:
			status = http.StatusConflict
			message = spErr.Message
		}
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", map[string]any{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
	}

	c.JSON(status, types.LinkResponse{Success: false, Error: message})
}
