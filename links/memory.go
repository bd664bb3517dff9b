package links

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stackpay/stackpay/types"
)

// MemoryStore is the fallback used when no database is configured, for
// local development and tests. All operations work on copies so callers
// never share mutable state with the store.
type MemoryStore struct {
	cfg StoreConfig

	mu    sync.RWMutex
	rows  map[string]*types.PaymentLink
	clock func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(cfg StoreConfig) *MemoryStore {
	return &MemoryStore{
		cfg:   cfg,
		rows:  make(map[string]*types.PaymentLink),
		clock: time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, req types.CreateLinkRequest) (*types.PaymentLink, error) {
	if err := validateCreate(req, s.cfg); err != nil {
		return nil, err
	}

	link, err := newLink(req, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[link.ID] = link

	return copyLink(link), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.PaymentLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.rows[id]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "payment link not found")
	}
	return copyLink(link), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, req types.UpdateLinkRequest) (*types.PaymentLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.rows[id]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "payment link not found")
	}

	updated := copyLink(link)
	if err := applyUpdate(updated, req, s.clock().UTC()); err != nil {
		return nil, err
	}

	s.rows[id] = updated
	return copyLink(updated), nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*types.PaymentLink, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.PaymentLink, 0, len(s.rows))
	for _, link := range s.rows {
		out = append(out, copyLink(link))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, statuses ...types.Status) ([]*types.PaymentLink, error) {
	wanted := make(map[types.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.PaymentLink
	for _, link := range s.rows {
		if wanted[link.Status] {
			out = append(out, copyLink(link))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func copyLink(link *types.PaymentLink) *types.PaymentLink {
	dup := *link
	if link.CompletedAt != nil {
		completed := *link.CompletedAt
		dup.CompletedAt = &completed
	}
	return &dup
}
