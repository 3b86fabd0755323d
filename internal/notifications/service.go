package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"tvcore/internal/config"
	"tvcore/internal/logging"
)

const userAgent = "tvcore/0.1.0"

// EventType identifies a notification.
type EventType string

const (
	EventChannelsUpdated   EventType = "channels_updated"
	EventScanNoSpace       EventType = "scan_no_service_space"
	EventScanFailed        EventType = "scan_failed"
	EventMiddlewareTimeout EventType = "middleware_not_ready"
	EventHardwareChanged   EventType = "hardware_changed"
	EventTest              EventType = "test"
)

// Event is one published notification. Fields that do not apply to a type
// are left zero.
type Event struct {
	Type       EventType `json:"type"`
	Technology string    `json:"technology,omitempty"`
	Channels   int       `json:"channels,omitempty"`
	ScanID     string    `json:"scan_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Time       time.Time `json:"time"`
}

// Observer receives published events on the publisher's goroutine.
type Observer func(Event)

// Hub delivers events to subscribers and the optional ntfy endpoint.
type Hub struct {
	logger *slog.Logger
	push   *ntfyClient
	now    func() time.Time

	mu        sync.Mutex
	next      int
	observers map[int]Observer
}

// NewHub builds a hub. When no ntfy topic is configured only in-process
// observers receive events.
func NewHub(cfg config.Notifications, logger *slog.Logger) *Hub {
	h := &Hub{
		logger:    logging.NewComponentLogger(logger, "notifications"),
		now:       time.Now,
		observers: make(map[int]Observer),
	}
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return h
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h.push = &ntfyClient{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
	return h
}

// PushEnabled reports whether events are forwarded to ntfy.
func (h *Hub) PushEnabled() bool {
	return h != nil && h.push != nil
}

// Subscribe registers obs and returns a function that removes it.
func (h *Hub) Subscribe(obs Observer) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.observers[id] = obs
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.observers, id)
	}
}

// Publish stamps evt, hands it to every observer, then pushes it to ntfy.
func (h *Hub) Publish(ctx context.Context, evt Event) error {
	if h == nil {
		return nil
	}
	if evt.Time.IsZero() {
		evt.Time = h.now()
	}

	h.mu.Lock()
	observers := make([]Observer, 0, len(h.observers))
	for i := 0; i < h.next; i++ {
		if obs, ok := h.observers[i]; ok {
			observers = append(observers, obs)
		}
	}
	h.mu.Unlock()
	for _, obs := range observers {
		obs(evt)
	}

	h.logger.Debug("notification published",
		logging.String(logging.FieldEventType, string(evt.Type)),
		logging.Int("observers", len(observers)),
	)

	if h.push == nil {
		return nil
	}
	data, ok := format(evt)
	if !ok {
		return nil
	}
	if err := h.push.send(ctx, data); err != nil {
		logging.WarnWithContext(h.logger, "ntfy push failed", "notification_push_failed",
			logging.String("notification", string(evt.Type)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network reachability"),
			logging.String(logging.FieldImpact, "push notification was not delivered"),
		)
		return err
	}
	return nil
}

// Test publishes a test event.
func (h *Hub) Test(ctx context.Context) error {
	return h.Publish(ctx, Event{Type: EventTest})
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

func format(evt Event) (payload, bool) {
	tech := evt.Technology
	if tech == "" {
		tech = "unknown"
	}
	switch evt.Type {
	case EventChannelsUpdated:
		return payload{
			title:   "TVCore - Channels Updated",
			message: fmt.Sprintf("📺 Channel list updated: %d channels (%s)", evt.Channels, tech),
			tags:    []string{"tvcore", "channels", "updated"},
		}, true
	case EventScanNoSpace:
		return payload{
			title:    "TVCore - Scan Stopped",
			message:  fmt.Sprintf("⚠️ Scan stopped, no service space left: %d channels (%s)", evt.Channels, tech),
			tags:     []string{"tvcore", "scan", "full"},
			priority: "high",
		}, true
	case EventScanFailed:
		return payload{
			title:    "TVCore - Scan Failed",
			message:  fmt.Sprintf("❌ Scan failed (%s): %s", tech, strings.TrimSpace(evt.Detail)),
			tags:     []string{"tvcore", "scan", "error"},
			priority: "high",
		}, true
	case EventMiddlewareTimeout:
		return payload{
			title:    "TVCore - Middleware Not Ready",
			message:  "⏳ Middleware did not report ready: " + strings.TrimSpace(evt.Detail),
			tags:     []string{"tvcore", "middleware", "timeout"},
			priority: "high",
		}, true
	case EventHardwareChanged:
		return payload{
			title:   "TVCore - Hardware Changed",
			message: fmt.Sprintf("🔌 %s. Restart tvcore to rediscover routes.", strings.TrimSpace(evt.Detail)),
			tags:    []string{"tvcore", "hardware", "changed"},
		}, true
	case EventTest:
		return payload{
			title:   "TVCore - Test",
			message: "🔔 Test notification from tvcore",
			tags:    []string{"tvcore", "test"},
		}, true
	default:
		return payload{}, false
	}
}

type ntfyClient struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyClient) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
