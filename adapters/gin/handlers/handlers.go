// Package handlers implements the payment API surface the funnel's
// entitlement resolver consumes.
package handlers

import (
	"context"
	"time"

	"github.com/Tehman700/paygate/records"
)

// DefaultRecentWindow bounds the anonymous recent-payment check.
const DefaultRecentWindow = 30 * time.Minute

// PaymentRecords is the slice of records.Store the handlers use.
type PaymentRecords interface {
	HasPaid(ctx context.Context, email, product string) (bool, error)
	HasRecentPayment(ctx context.Context, product string, window time.Duration) (bool, error)
	CreateSession(ctx context.Context, sess records.Session) error
	CompleteSession(ctx context.Context, sessionID string) (*records.Session, error)
	RecordPayment(ctx context.Context, p records.Payment) error
}
