package links

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stackpay/stackpay/types"
)

// LinkModel is the payment_links row shape.
type LinkModel struct {
	ID               string     `gorm:"column:id;primaryKey;size:32"`
	RecipientAddress string     `gorm:"column:recipient_address;size:64;not null"`
	Amount           string     `gorm:"column:amount;size:32;not null"`
	Memo             *string    `gorm:"column:memo;size:256"`
	Status           string     `gorm:"column:status;size:16;not null;index"`
	EthTxHash        *string    `gorm:"column:eth_tx_hash;size:66"`
	StacksTxID       *string    `gorm:"column:stacks_tx_id;size:66"`
	PayerAddress     *string    `gorm:"column:payer_address;size:42"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;not null"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
}

// TableName implements the gorm table naming convention.
func (LinkModel) TableName() string {
	return "payment_links"
}

// GormStore persists payment links through gorm.
type GormStore struct {
	db    *gorm.DB
	cfg   StoreConfig
	clock func() time.Time
}

var _ Store = (*GormStore)(nil)

// OpenDatabase opens a gorm connection for the configured driver.
// Supported drivers are sqlite and mysql.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewGormStore migrates the payment_links table and returns a store bound
// to db.
func NewGormStore(db *gorm.DB, cfg StoreConfig) (*GormStore, error) {
	if err := db.AutoMigrate(&LinkModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate payment_links: %w", err)
	}
	return &GormStore{db: db, cfg: cfg, clock: time.Now}, nil
}

func (s *GormStore) Create(ctx context.Context, req types.CreateLinkRequest) (*types.PaymentLink, error) {
	if err := validateCreate(req, s.cfg); err != nil {
		return nil, err
	}

	link, err := newLink(req, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(toModel(link)).Error; err != nil {
		return nil, types.WrapError(types.ErrInternal, "failed to create payment link", err)
	}

	return link, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*types.PaymentLink, error) {
	var model LinkModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.ErrNotFound, "payment link not found")
		}
		return nil, types.WrapError(types.ErrInternal, "failed to get payment link", err)
	}
	return toEntity(&model), nil
}

// Update runs the read-validate-write inside a transaction so a single
// call is atomic against the persisted row. Cross-call ordering remains
// last-write-wins per field.
func (s *GormStore) Update(ctx context.Context, id string, req types.UpdateLinkRequest) (*types.PaymentLink, error) {
	var updated *types.PaymentLink

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model LinkModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NewError(types.ErrNotFound, "payment link not found")
			}
			return types.WrapError(types.ErrInternal, "failed to get payment link", err)
		}

		link := toEntity(&model)
		if err := applyUpdate(link, req, s.clock().UTC()); err != nil {
			return err
		}

		if err := tx.Save(toModel(link)).Error; err != nil {
			return types.WrapError(types.ErrInternal, "failed to update payment link", err)
		}

		updated = link
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *GormStore) List(ctx context.Context, limit int) ([]*types.PaymentLink, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var models []LinkModel
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, types.WrapError(types.ErrInternal, "failed to list payment links", err)
	}

	out := make([]*types.PaymentLink, 0, len(models))
	for i := range models {
		out = append(out, toEntity(&models[i]))
	}
	return out, nil
}

func (s *GormStore) ListByStatus(ctx context.Context, statuses ...types.Status) ([]*types.PaymentLink, error) {
	values := make([]string, 0, len(statuses))
	for _, st := range statuses {
		values = append(values, string(st))
	}

	var models []LinkModel
	if err := s.db.WithContext(ctx).
		Where("status IN ?", values).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, types.WrapError(types.ErrInternal, "failed to list payment links", err)
	}

	out := make([]*types.PaymentLink, 0, len(models))
	for i := range models {
		out = append(out, toEntity(&models[i]))
	}
	return out, nil
}

func toModel(link *types.PaymentLink) *LinkModel {
	return &LinkModel{
		ID:               link.ID,
		RecipientAddress: link.RecipientAddress,
		Amount:           link.Amount,
		Memo:             optional(link.Memo),
		Status:           string(link.Status),
		EthTxHash:        optional(link.EthTxHash),
		StacksTxID:       optional(link.StacksTxID),
		PayerAddress:     optional(link.PayerAddress),
		CreatedAt:        link.CreatedAt,
		UpdatedAt:        link.UpdatedAt,
		CompletedAt:      link.CompletedAt,
	}
}

func toEntity(model *LinkModel) *types.PaymentLink {
	return &types.PaymentLink{
		ID:               model.ID,
		RecipientAddress: model.RecipientAddress,
		Amount:           model.Amount,
		Memo:             deref(model.Memo),
		Status:           types.Status(model.Status),
		EthTxHash:        deref(model.EthTxHash),
		StacksTxID:       deref(model.StacksTxID),
		PayerAddress:     deref(model.PayerAddress),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
		CompletedAt:      model.CompletedAt,
	}
}

// optional maps the empty string to NULL, matching the nullable columns.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
