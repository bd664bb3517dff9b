package types

// CreateLinkRequest is the body of POST /api/links.
type CreateLinkRequest struct {
	// Stacks address that receives the bridged funds.
	RecipientAddress string `json:"recipientAddress" binding:"required"`

	// Requested amount as a decimal USDC string.
	Amount string `json:"amount" binding:"required"`

	// Optional merchant annotation.
	Memo string `json:"memo,omitempty" binding:"omitempty,max=256"`
}

// UpdateLinkRequest is the body of PATCH /api/links/{id}. Nil fields are
// left untouched; a non-nil empty string clears the stored value.
type UpdateLinkRequest struct {
	Status       *Status `json:"status,omitempty"`
	EthTxHash    *string `json:"ethTxHash,omitempty"`
	StacksTxID   *string `json:"stacksTxId,omitempty"`
	PayerAddress *string `json:"payerAddress,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (r *UpdateLinkRequest) Empty() bool {
	return r.Status == nil && r.EthTxHash == nil && r.StacksTxID == nil && r.PayerAddress == nil
}

// ExplorerLinks carries block-explorer URLs for display surfaces.
type ExplorerLinks struct {
	Recipient string `json:"recipient,omitempty"`
	EthTx     string `json:"ethTx,omitempty"`
	StacksTx  string `json:"stacksTx,omitempty"`
}

// LinkResponse is the envelope for single-link endpoints.
type LinkResponse struct {
	Success  bool           `json:"success"`
	Link     *PaymentLink   `json:"link,omitempty"`
	Explorer *ExplorerLinks `json:"explorer,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// LinkListResponse is the envelope for GET /api/links.
type LinkListResponse struct {
	Success bool           `json:"success"`
	Links   []*PaymentLink `json:"links"`
	Error   string         `json:"error,omitempty"`
}
