// Package records is the authoritative, server-side payment record. The
// client-side gate exists only to avoid paywall flashes for paid visitors;
// this store is what actually decides hasPaid.
package records

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Payment is one completed checkout.
type Payment struct {
	ID        uuid.UUID
	Email     string
	Product   string
	SessionID string
	PaidAt    time.Time
}

// Session is a pending or completed hosted-checkout session.
type Session struct {
	ID              string
	Email           string
	RequiredProduct string
	Completed       bool
	CreatedAt       time.Time
}

// Store provides payment and checkout-session queries against the payments schema.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "payments"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) paymentsTable() string { return s.schema + ".payments" }
func (s *Store) sessionsTable() string { return s.schema + ".checkout_sessions" }

// RecordPayment inserts a completed checkout. Re-deliveries of the same
// webhook (same session id) are idempotent.
func (s *Store) RecordPayment(ctx context.Context, p Payment) error {
	if s.pg == nil {
		return nil
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}
	_, err := s.pg.Exec(ctx,
		`INSERT INTO `+s.paymentsTable()+` (id, email, product, session_id, paid_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id) DO NOTHING`,
		p.ID, strings.ToLower(strings.TrimSpace(p.Email)), p.Product, p.SessionID, p.PaidAt)
	return err
}

// HasPaid reports whether email has a completed payment for product.
func (s *Store) HasPaid(ctx context.Context, email, product string) (bool, error) {
	if s.pg == nil || strings.TrimSpace(email) == "" || product == "" {
		return false, nil
	}
	var exists bool
	err := s.pg.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.paymentsTable()+` WHERE email=$1 AND product=$2)`,
		strings.ToLower(strings.TrimSpace(email)), product).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// HasRecentPayment reports whether any payment for product landed within
// window. Covers the anonymous visitor who just bounced back from checkout
// before their identity reached session state.
func (s *Store) HasRecentPayment(ctx context.Context, product string, window time.Duration) (bool, error) {
	if s.pg == nil || product == "" {
		return false, nil
	}
	if window <= 0 {
		window = 30 * time.Minute
	}
	var exists bool
	err := s.pg.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.paymentsTable()+` WHERE product=$1 AND paid_at > $2)`,
		product, time.Now().Add(-window)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CreateSession records a newly created hosted-checkout session.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	if s.pg == nil {
		return nil
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	_, err := s.pg.Exec(ctx,
		`INSERT INTO `+s.sessionsTable()+` (id, email, required_product, completed, created_at)
		 VALUES ($1, $2, $3, FALSE, $4)`,
		sess.ID, strings.ToLower(strings.TrimSpace(sess.Email)), sess.RequiredProduct, sess.CreatedAt)
	return err
}

// CompleteSession marks a session paid. Returns the session, or nil when
// the id is unknown.
func (s *Store) CompleteSession(ctx context.Context, sessionID string) (*Session, error) {
	if s.pg == nil || sessionID == "" {
		return nil, nil
	}
	var sess Session
	err := s.pg.QueryRow(ctx,
		`UPDATE `+s.sessionsTable()+` SET completed=TRUE
		 WHERE id=$1
		 RETURNING id, email, required_product, completed, created_at`,
		sessionID).Scan(&sess.ID, &sess.Email, &sess.RequiredProduct, &sess.Completed, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// PurgeStaleSessions deletes pending sessions older than maxAge and returns
// how many were removed.
func (s *Store) PurgeStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	if s.pg == nil {
		return 0, nil
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	tag, err := s.pg.Exec(ctx,
		`DELETE FROM `+s.sessionsTable()+` WHERE completed=FALSE AND created_at < $1`,
		time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
