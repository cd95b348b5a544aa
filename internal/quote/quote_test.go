package quote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/storage/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newSigner(t *testing.T) (*Signer, *clock) {
	t.Helper()
	clk := &clock{t: time.UnixMilli(1_700_000_000_000)}
	s, err := NewSigner("test-secret", 0, memory.NewQuoteStore(), clk.now)
	require.NoError(t, err)
	return s, clk
}

func TestNewSigner_RequiresSecret(t *testing.T) {
	_, err := NewSigner("", time.Minute, memory.NewQuoteStore(), nil)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "q1:c1:5500000:1700000060000", Message("q1", "c1", 5_500_000, 1_700_000_060_000))
}

func TestIssueVerify_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	s, clk := newSigner(t)

	q, err := s.Issue(ctx, "c1", 5_500_000)
	require.NoError(t, err)
	assert.Equal(t, clk.now().Add(60*time.Second).UnixMilli(), q.ExpiresAt)
	assert.Len(t, q.Signature, 64)

	_, err = s.Verify(ctx, q.ID, "c1", 5_500_000, q.Signature)
	require.NoError(t, err)

	// Verification does not consume.
	_, err = s.Verify(ctx, q.ID, "c1", 5_500_000, q.Signature)
	require.NoError(t, err)

	clk.advance(59 * time.Second)
	_, err = s.Verify(ctx, q.ID, "c1", 5_500_000, q.Signature)
	require.NoError(t, err)

	clk.advance(time.Second)
	_, err = s.Verify(ctx, q.ID, "c1", 5_500_000, q.Signature)
	assert.ErrorIs(t, err, ErrInvalidQuote)
}

func TestVerify_Rejections(t *testing.T) {
	ctx := context.Background()
	s, _ := newSigner(t)
	q, err := s.Issue(ctx, "c1", 7_000_000)
	require.NoError(t, err)

	cases := map[string]func() error{
		"unknown id": func() error { _, err := s.Verify(ctx, "nope", "c1", 7_000_000, q.Signature); return err },
		"other card": func() error { _, err := s.Verify(ctx, q.ID, "c2", 7_000_000, q.Signature); return err },
		"other price": func() error { _, err := s.Verify(ctx, q.ID, "c1", 6_999_999, q.Signature); return err },
		"bad signature": func() error {
			_, err := s.Verify(ctx, q.ID, "c1", 7_000_000, "00"+q.Signature[2:])
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.Is(fn(), ErrInvalidQuote))
		})
	}
}

func TestVerify_OtherSecretRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuoteStore()
	now := func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	a, err := NewSigner("secret-a", 0, store, now)
	require.NoError(t, err)
	b, err := NewSigner("secret-b", 0, store, now)
	require.NoError(t, err)

	q, err := a.Issue(ctx, "c1", 1)
	require.NoError(t, err)
	_, err = b.Verify(ctx, q.ID, "c1", 1, q.Signature)
	assert.ErrorIs(t, err, ErrInvalidQuote)
}

func TestConsume_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newSigner(t)
	q, err := s.Issue(ctx, "c1", 1_000)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Consume(ctx, q.ID) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, err = s.Verify(ctx, q.ID, "c1", 1_000, q.Signature)
	assert.ErrorIs(t, err, ErrInvalidQuote)
}

func TestRestore_AfterConsume(t *testing.T) {
	ctx := context.Background()
	s, _ := newSigner(t)
	q, err := s.Issue(ctx, "c1", 1_000)
	require.NoError(t, err)

	require.NoError(t, s.Restore(ctx, q), "restoring a stored quote is a no-op")
	require.NoError(t, s.Consume(ctx, q.ID))
	require.NoError(t, s.Restore(ctx, q))

	_, err = s.Verify(ctx, q.ID, "c1", 1_000, q.Signature)
	require.NoError(t, err)
	assert.NoError(t, s.Consume(ctx, q.ID))
}
