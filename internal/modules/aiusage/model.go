// README: Monthly AI token allowance per user; every AI endpoint spends one token.
package aiusage

import (
	"context"
	"errors"
	"time"
)

// ErrInsufficientTokens is returned when a user has no tokens remaining for the current month.
var ErrInsufficientTokens = errors.New("insufficient tokens")

// DefaultTokens is the number of tokens granted per month.
const DefaultTokens = 100

// monthLayout keys the lazy monthly reset.
const monthLayout = "2006-01"

func month(t time.Time) string { return t.UTC().Format(monthLayout) }

// Quota is the storage contract behind Service.
type Quota interface {
	// UseToken deducts one token for month, resetting a stale row first.
	// It returns ErrInsufficientTokens when nothing was deducted, including
	// when the row does not exist.
	UseToken(ctx context.Context, uid, month string) error
	// EnsureUser creates the row with DefaultTokens if it is missing.
	EnsureUser(ctx context.Context, uid, month string) error
	// Remaining reports the balance as stored, or DefaultTokens for unknown users.
	Remaining(ctx context.Context, uid, month string) (int, error)
}
