package realtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habittracker/pkg/metrics"
)

const channelPrefix = "habit-events:"

// Session is one connected client. Send must not block; it reports false
// when the session cannot keep up, and the hub drops it.
type Session interface {
	Send(data []byte) bool
	Close()
}

// Event is the wire envelope pushed to clients. Payload mirrors the REST
// resource that was just mutated.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// envelope is the cross-instance form carried over Redis. Origin lets the
// publishing instance skip its own echo; local sessions already got the
// event directly.
type envelope struct {
	Origin  string          `json:"origin"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub is the per-user broadcast registry. Membership is transient: it is
// rebuilt from scratch on restart as clients reconnect. Delivery is
// best-effort with no replay; a disconnected session misses events until it
// reconnects and re-fetches state over REST.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int]map[Session]struct{}

	rdb      *redis.Client
	logger   *zap.Logger
	instance string
}

func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)

	return &Hub{
		sessions: map[int]map[Session]struct{}{},
		rdb:      rdb,
		logger:   logger,
		instance: hex.EncodeToString(buf),
	}
}

func (h *Hub) Register(userID int, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[userID] == nil {
		h.sessions[userID] = map[Session]struct{}{}
	}
	h.sessions[userID][s] = struct{}{}
	h.logger.Debug("Session joined", zap.Int("user_id", userID))
}

func (h *Hub) Unregister(userID int, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.sessions[userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, userID)
		}
	}
}

// Publish delivers an event to the user's local sessions and relays it to
// other instances through Redis. Failures are logged and swallowed: a push
// that does not go out never affects the write that triggered it.
func (h *Hub) Publish(userID int, event string, payload any) {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		h.logger.Error("Failed to encode realtime event", zap.String("event", event), zap.Error(err))
		return
	}

	h.deliver(userID, data)
	metrics.IncrementRealtimeEvent(event)

	if h.rdb == nil {
		return
	}

	raw, err := json.Marshal(envelope{
		Origin:  h.instance,
		Type:    event,
		Payload: jsonPayload(payload),
	})
	if err != nil {
		return
	}
	channel := channelPrefix + strconv.Itoa(userID)
	if err := h.rdb.Publish(context.Background(), channel, raw).Err(); err != nil {
		h.logger.Warn("Failed to relay event via Redis",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func jsonPayload(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// deliver fans out to the user's local sessions, dropping any that cannot
// keep up.
func (h *Hub) deliver(userID int, data []byte) {
	h.mu.RLock()
	var slow []Session
	for s := range h.sessions[userID] {
		if !s.Send(data) {
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.Warn("Dropping slow realtime session", zap.Int("user_id", userID))
		h.Unregister(userID, s)
		s.Close()
	}
}

// Run subscribes to the Redis relay channels and forwards events published
// by other instances to local sessions. Returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	sub := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRelay(msg)
		}
	}
}

func (h *Hub) handleRelay(msg *redis.Message) {
	userID, err := strconv.Atoi(strings.TrimPrefix(msg.Channel, channelPrefix))
	if err != nil {
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		h.logger.Warn("Dropping malformed relay message", zap.Error(err))
		return
	}
	if env.Origin == h.instance {
		return
	}

	data, err := json.Marshal(Event{Type: env.Type, Payload: env.Payload})
	if err != nil {
		return
	}
	h.deliver(userID, data)
}

// String describes the hub instance for logs.
func (h *Hub) String() string {
	return fmt.Sprintf("hub-%s", h.instance)
}
