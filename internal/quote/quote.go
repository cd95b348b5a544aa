// Package quote issues and verifies short-lived HMAC-signed price quotes.
package quote

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"pumpcards/internal/domain"
	"pumpcards/internal/observability"
	"pumpcards/internal/storage"
)

// DefaultTTL is the validity window of an issued quote.
const DefaultTTL = 60 * time.Second

// ErrInvalidQuote is returned for unknown, mismatched, tampered or expired quotes.
var ErrInvalidQuote = errors.New("invalid or expired quote")

// ErrNoSecret is returned when the signer has no key.
var ErrNoSecret = errors.New("quote signing secret is empty")

// Signer issues and verifies quotes under a server-held secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	quotes storage.QuoteStore
	now    func() time.Time
}

// NewSigner creates a Signer. A non-positive ttl uses DefaultTTL.
func NewSigner(secret string, ttl time.Duration, quotes storage.QuoteStore, now func() time.Time) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		quotes: quotes,
		now:    now,
	}, nil
}

// Message returns the canonical signed message "id:cardId:price:expiresAt".
func Message(id, cardID string, priceLamports, expiresAt int64) string {
	return id + ":" + cardID + ":" + strconv.FormatInt(priceLamports, 10) + ":" + strconv.FormatInt(expiresAt, 10)
}

// Sign returns the hex HMAC-SHA256 of the canonical message.
func (s *Signer) Sign(id, cardID string, priceLamports, expiresAt int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(Message(id, cardID, priceLamports, expiresAt)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue signs and persists a quote for the card at the given price.
func (s *Signer) Issue(ctx context.Context, cardID string, priceLamports int64) (*domain.PriceQuote, error) {
	if cardID == "" || priceLamports <= 0 {
		return nil, storage.ErrInvalidInput
	}
	now := s.now()
	q := &domain.PriceQuote{
		ID:            uuid.NewString(),
		CardID:        cardID,
		PriceLamports: priceLamports,
		ExpiresAt:     now.Add(s.ttl).UnixMilli(),
		CreatedAt:     now.UnixMilli(),
	}
	q.Signature = s.Sign(q.ID, q.CardID, q.PriceLamports, q.ExpiresAt)

	if err := s.quotes.Insert(ctx, q); err != nil {
		return nil, fmt.Errorf("insert quote: %w", err)
	}
	observability.RecordQuoteIssued()
	return q, nil
}

// Verify checks that the stored quote matches card and price, has not expired,
// and carries the presented signature. It does not consume the quote.
// Rejections return ErrInvalidQuote; storage failures are returned as is.
func (s *Signer) Verify(ctx context.Context, id, cardID string, priceLamports int64, signature string) (*domain.PriceQuote, error) {
	q, err := s.verify(ctx, id, cardID, priceLamports, signature)
	observability.RecordQuoteVerification(err == nil)
	return q, err
}

func (s *Signer) verify(ctx context.Context, id, cardID string, priceLamports int64, signature string) (*domain.PriceQuote, error) {
	q, err := s.quotes.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidQuote
	}
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	if q.CardID != cardID || q.PriceLamports != priceLamports {
		return nil, ErrInvalidQuote
	}
	if s.now().UnixMilli() >= q.ExpiresAt {
		return nil, ErrInvalidQuote
	}

	presented := []byte(signature)
	expected := []byte(s.Sign(q.ID, q.CardID, q.PriceLamports, q.ExpiresAt))
	if !hmac.Equal(presented, []byte(q.Signature)) || !hmac.Equal(presented, expected) {
		return nil, ErrInvalidQuote
	}
	return q, nil
}

// Consume marks a verified quote as used. Only one caller can consume a quote.
func (s *Signer) Consume(ctx context.Context, id string) error {
	err := s.quotes.Consume(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidQuote
	}
	if err != nil {
		return fmt.Errorf("consume quote: %w", err)
	}
	return nil
}

// Restore puts a consumed quote back so it can be redeemed again.
// It is a no-op if the quote is still stored.
func (s *Signer) Restore(ctx context.Context, q *domain.PriceQuote) error {
	err := s.quotes.Insert(ctx, q)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("restore quote: %w", err)
	}
	return nil
}

// TTL returns the quote validity window.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}
