package aiusage

import (
	"context"
	"errors"
	"time"
)

// Service orchestrates AI token-usage logic.
type Service struct {
	store Quota
	now   func() time.Time
}

// NewService creates a Service backed by the given Quota store.
func NewService(store Quota) *Service {
	return &Service{store: store, now: time.Now}
}

// UseToken deducts one token from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the token is immediately consumed.
// Returns ErrInsufficientTokens when the quota for the current month is exhausted.
func (s *Service) UseToken(ctx context.Context, uid string) error {
	m := month(s.now())
	err := s.store.UseToken(ctx, uid, m)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureUser(ctx, uid, m); initErr != nil {
		return initErr
	}
	return s.store.UseToken(ctx, uid, m)
}

// Remaining is the balance the user would see this month.
func (s *Service) Remaining(ctx context.Context, uid string) (int, error) {
	return s.store.Remaining(ctx, uid, month(s.now()))
}
