package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
	"pumpcards/internal/idhash"
)

// LiveFeedProvider takes a bounded snapshot of a websocket stream of live-stream
// updates. Each message is a stream object, an array of them, or {"streams": [...]}.
// The latest update per streamer wins.
type LiveFeedProvider struct {
	url         string
	collectFor  time.Duration
	maxMessages int
	dialer      *websocket.Dialer
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewLiveFeedProvider creates the websocket adapter. It is disabled without a URL.
func NewLiveFeedProvider(url string, collectFor time.Duration, maxMessages int, logger logrus.FieldLogger) *LiveFeedProvider {
	if collectFor <= 0 {
		collectFor = 5 * time.Second
	}
	if maxMessages <= 0 {
		maxMessages = 100
	}
	return &LiveFeedProvider{
		url:         url,
		collectFor:  collectFor,
		maxMessages: maxMessages,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:      logger.WithField("provider", "live_feed"),
		now:         time.Now,
	}
}

func (p *LiveFeedProvider) Name() string    { return "live_feed" }
func (p *LiveFeedProvider) Enabled() bool   { return p.url != "" }
func (p *LiveFeedProvider) Synthetic() bool { return false }

// FetchStreamers implements Provider.
func (p *LiveFeedProvider) FetchStreamers(ctx context.Context) ([]domain.NormalizedRecord, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}

	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	deadline := p.now().Add(p.collectFor)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	// Unblock ReadMessage when the caller gives up.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	latest := make(map[string]domain.NormalizedRecord)
	var order []string

	for i := 0; i < p.maxMessages; i++ {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isSnapshotEnd(err) {
				break
			}
			return nil, fmt.Errorf("websocket read: %w", err)
		}

		items, err := decodeLiveMessage(msg)
		if err != nil {
			p.logger.WithError(err).Debug("Skipping undecodable message")
			continue
		}
		now := p.now()
		for _, item := range items {
			rec := parseRaw(item, pumpFunFields, p.Name(), now)
			if !Sanitize(&rec) {
				continue
			}
			key := idhash.StreamerKey(rec.Handle, rec.TokenAddress)
			if _, ok := latest[key]; !ok {
				order = append(order, key)
			}
			latest[key] = rec
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	out := make([]domain.NormalizedRecord, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out, nil
}

// isSnapshotEnd reports whether a read error ends the snapshot window normally.
func isSnapshotEnd(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func decodeLiveMessage(msg []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(msg))
	if strings.HasPrefix(trimmed, "[") {
		var items []map[string]any
		if err := json.Unmarshal(msg, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(msg, &obj); err != nil {
		return nil, err
	}
	if raw, ok := obj["streams"].([]any); ok {
		items := make([]map[string]any, 0, len(raw))
		for _, r := range raw {
			if m, ok := r.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items, nil
	}
	return []map[string]any{obj}, nil
}
