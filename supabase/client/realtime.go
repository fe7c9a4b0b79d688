package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const heartbeatInterval = 30 * time.Second

// RealtimeClient subscribes to Postgres row changes over the Supabase
// realtime websocket (Phoenix channel protocol).
type RealtimeClient struct {
	mu          sync.Mutex
	url         string
	accessToken string
	conn        *websocket.Conn
	channels    map[string]*Channel
	done        chan struct{}
	ref         int
}

// Change is a single row change delivered by a postgres_changes channel.
type Change struct {
	Topic     string
	Type      string // INSERT, UPDATE, DELETE
	Schema    string
	Table     string
	Record    map[string]any
	OldRecord map[string]any
}

// ChangeHandler handles row changes.
type ChangeHandler func(change Change)

// PostgresChangesConfig selects the rows a channel listens to.
type PostgresChangesConfig struct {
	Event  string // INSERT, UPDATE, DELETE, *
	Schema string
	Table  string
	Filter string // optional, e.g. "landlord_id=eq.<uuid>"
}

// Channel is a joined realtime channel.
type Channel struct {
	client  *RealtimeClient
	topic   string
	joinRef string
	handler ChangeHandler
}

// NewRealtimeClient creates a realtime client for a project URL.
func NewRealtimeClient(supabaseURL, apiKey string) *RealtimeClient {
	wsURL := supabaseURL
	switch {
	case strings.HasPrefix(wsURL, "https"):
		wsURL = "wss" + strings.TrimPrefix(wsURL, "https")
	case strings.HasPrefix(wsURL, "http"):
		wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	}
	wsURL = strings.TrimSuffix(wsURL, "/") + "/realtime/v1/websocket?apikey=" + url.QueryEscape(apiKey) + "&vsn=1.0.0"

	return &RealtimeClient{
		url:      wsURL,
		channels: make(map[string]*Channel),
		done:     make(chan struct{}),
	}
}

// SetAccessToken sets the user token sent with channel joins so change
// delivery honours row-level security.
func (r *RealtimeClient) SetAccessToken(token string) {
	r.mu.Lock()
	r.accessToken = token
	r.mu.Unlock()
}

// Connect establishes the websocket connection.
func (r *RealtimeClient) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})

	go r.readLoop(conn, r.done)
	go r.heartbeat(r.done)

	return nil
}

// Disconnect closes the websocket connection.
func (r *RealtimeClient) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}

	close(r.done)
	err := r.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	r.conn.Close()
	r.conn = nil
	r.channels = make(map[string]*Channel)
	if err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

// SubscribeToPostgresChanges joins a channel that delivers matching row changes
// to handler.
func (r *RealtimeClient) SubscribeToPostgresChanges(ctx context.Context, name string, cfg PostgresChangesConfig, handler ChangeHandler) (*Channel, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Event == "" {
		cfg.Event = "*"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil, fmt.Errorf("realtime not connected")
	}

	topic := "realtime:" + name
	if _, ok := r.channels[topic]; ok {
		return nil, fmt.Errorf("channel %s already subscribed", name)
	}

	change := map[string]any{
		"event":  cfg.Event,
		"schema": cfg.Schema,
		"table":  cfg.Table,
	}
	if cfg.Filter != "" {
		change["filter"] = cfg.Filter
	}
	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []any{change},
		},
	}
	if r.accessToken != "" {
		payload["access_token"] = r.accessToken
	}

	ref := r.nextRef()
	if err := r.conn.WriteJSON(map[string]any{
		"topic":    topic,
		"event":    "phx_join",
		"payload":  payload,
		"ref":      ref,
		"join_ref": ref,
	}); err != nil {
		return nil, fmt.Errorf("send join: %w", err)
	}

	ch := &Channel{client: r, topic: topic, joinRef: ref, handler: handler}
	r.channels[topic] = ch
	return ch, nil
}

// Topic returns the channel topic.
func (c *Channel) Topic() string {
	return c.topic
}

// Unsubscribe leaves the channel.
func (c *Channel) Unsubscribe() error {
	r := c.client
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[c.topic]; !ok {
		return nil
	}
	delete(r.channels, c.topic)
	if r.conn == nil {
		return nil
	}

	if err := r.conn.WriteJSON(map[string]any{
		"topic":    c.topic,
		"event":    "phx_leave",
		"payload":  map[string]any{},
		"ref":      r.nextRef(),
		"join_ref": c.joinRef,
	}); err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	return nil
}

// nextRef must be called with mu held.
func (r *RealtimeClient) nextRef() string {
	r.ref++
	return strconv.Itoa(r.ref)
}

func (r *RealtimeClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case <-done:
			return
		default:
		}

		change, ok := parseChange(message)
		if !ok {
			continue
		}

		r.mu.Lock()
		ch := r.channels[change.Topic]
		r.mu.Unlock()
		if ch != nil && ch.handler != nil {
			ch.handler(change)
		}
	}
}

func parseChange(message []byte) (Change, bool) {
	msg := gjson.ParseBytes(message)
	if msg.Get("event").String() != "postgres_changes" {
		return Change{}, false
	}

	data := msg.Get("payload.data")
	if !data.Exists() {
		return Change{}, false
	}

	return Change{
		Topic:     msg.Get("topic").String(),
		Type:      data.Get("type").String(),
		Schema:    data.Get("schema").String(),
		Table:     data.Get("table").String(),
		Record:    asMap(data.Get("record")),
		OldRecord: asMap(data.Get("old_record")),
	}, true
}

func asMap(v gjson.Result) map[string]any {
	if !v.IsObject() {
		return nil
	}
	m, _ := v.Value().(map[string]any)
	return m
}

func (r *RealtimeClient) heartbeat(done chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.conn != nil {
				_ = r.conn.WriteJSON(map[string]any{
					"topic":   "phoenix",
					"event":   "heartbeat",
					"payload": map[string]any{},
					"ref":     r.nextRef(),
				})
			}
			r.mu.Unlock()
		}
	}
}
