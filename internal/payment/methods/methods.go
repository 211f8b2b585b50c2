// Package methods resolves the payment-method record configured for a
// payment provider.
package methods

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
	strutil "pawhaven/pkg/platform/strings"
)

// Static resolves providers from a fixed table, usually loaded from config.
type Static struct {
	mu      sync.RWMutex
	methods map[string]id.PaymentMethodID
}

func NewStatic(methods map[string]id.PaymentMethodID) *Static {
	m := make(map[string]id.PaymentMethodID, len(methods))
	for name, methodID := range methods {
		m[normalize(name)] = methodID
	}
	return &Static{methods: m}
}

// Register adds or replaces a provider mapping.
func (s *Static) Register(name string, methodID id.PaymentMethodID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[normalize(name)] = methodID
}

// RequirePaymentMethodIDByProvider returns CodeNotFound for unknown providers.
func (s *Static) RequirePaymentMethodIDByProvider(_ context.Context, provider string) (id.PaymentMethodID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	methodID, ok := s.methods[normalize(provider)]
	if !ok {
		return id.PaymentMethodID{}, dErrors.New(dErrors.CodeNotFound, "payment method not configured for provider "+provider)
	}
	return methodID, nil
}

// Postgres resolves providers from the payment_methods table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) RequirePaymentMethodIDByProvider(ctx context.Context, provider string) (id.PaymentMethodID, error) {
	var raw uuid.UUID
	err := p.db.QueryRowContext(ctx,
		`SELECT id FROM payment_methods WHERE lower(name) = $1`, normalize(provider),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.PaymentMethodID{}, dErrors.New(dErrors.CodeNotFound, "payment method not configured for provider "+provider)
		}
		return id.PaymentMethodID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve payment method")
	}
	return id.PaymentMethodID(raw), nil
}

// Seed upserts the provider table so configured ids exist before the first
// donation references them.
func (p *Postgres) Seed(ctx context.Context, methods map[string]id.PaymentMethodID) error {
	for name, methodID := range methods {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO payment_methods (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			uuid.UUID(methodID), normalize(name),
		)
		if err != nil {
			return fmt.Errorf("seed payment method %s: %w", name, err)
		}
	}
	return nil
}

// ParseList parses "name=uuid,name=uuid" into a provider table.
func ParseList(s string) (map[string]id.PaymentMethodID, error) {
	out := make(map[string]id.PaymentMethodID)
	for _, pair := range strutil.SplitList(s) {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid payment method entry %q", pair)
		}
		u, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid payment method id for %s: %w", name, err)
		}
		out[normalize(name)] = id.PaymentMethodID(u)
	}
	return out, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
