// Package realtime pushes domain events to connected websocket clients. With redis
// configured every instance publishes to a shared channel and delivers to its own clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/infrastructure/metrics"
)

// Envelope is the unit carried between instances.
type Envelope struct {
	UserIDs []string        `json:"user_ids"`
	Event   json.RawMessage `json:"event"`

	target *Client
}

// Broker fans envelopes out across instances.
type Broker interface {
	Publish(ctx context.Context, payload []byte) error
	Listen(ctx context.Context, handle func(payload []byte)) error
}

// ConnectionHooks are called when a user's first connection opens and last one closes.
type ConnectionHooks struct {
	OnConnect    func(ctx context.Context, userID string)
	OnDisconnect func(ctx context.Context, userID string)
}

// InboundHandler processes a frame sent by a client. A returned value is written back.
type InboundHandler func(ctx context.Context, userID string, frame []byte) any

// Hub holds the local connections keyed by user.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan *Envelope

	broker   Broker
	hooks    ConnectionHooks
	inbound  InboundHandler
	upgrader websocket.Upgrader
	log      zerolog.Logger
	done     chan struct{}
}

var _ event.Publisher = (*Hub)(nil)

// NewHub builds a hub. broker may be nil for single instance deployments.
func NewHub(broker Broker, allowedOrigins []string, log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *Envelope, 256),
		broker:     broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log:  log.With().Str("component", "realtime-hub").Logger(),
		done: make(chan struct{}),
	}
}

// SetHooks installs connection hooks. Call before Run.
func (h *Hub) SetHooks(hooks ConnectionHooks) { h.hooks = hooks }

// SetInboundHandler installs the handler for client frames. Call before Run.
func (h *Hub) SetInboundHandler(fn InboundHandler) { h.inbound = fn }

// Publish implements event.Publisher.
func (h *Hub) Publish(ctx context.Context, userIDs []string, evt event.Event) error {
	if len(userIDs) == 0 {
		return nil
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	env := &Envelope{UserIDs: userIDs, Event: raw}
	metrics.RecordRealtimeEvent(string(evt.Type))

	if h.broker != nil {
		payload, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		err = h.broker.Publish(ctx, payload)
		if err == nil {
			return nil
		}
		h.log.Warn().Err(err).Msg("broker publish failed, delivering locally")
	}

	select {
	case h.deliver <- env:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run owns the connection maps until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.broker != nil {
		go func() {
			err := h.broker.Listen(ctx, func(payload []byte) {
				var env Envelope
				if err := json.Unmarshal(payload, &env); err != nil {
					h.log.Warn().Err(err).Msg("drop malformed envelope")
					return
				}
				select {
				case h.deliver <- &env:
				case <-ctx.Done():
				}
			})
			if err != nil && ctx.Err() == nil {
				h.log.Error().Err(err).Msg("broker listener stopped")
			}
		}()
	}

	for {
		select {
		case c := <-h.register:
			conns, ok := h.clients[c.userID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[c.userID] = conns
			}
			conns[c] = struct{}{}
			metrics.SetRealtimeConnections(h.connectionCount())
			h.log.Debug().Int("user_connections", len(conns)).Msg("client registered")
			if !ok && h.hooks.OnConnect != nil {
				go h.hooks.OnConnect(ctx, c.userID)
			}
		case c := <-h.unregister:
			h.remove(ctx, c)
		case env := <-h.deliver:
			h.fanOut(ctx, env)
		case <-ctx.Done():
			for userID, conns := range h.clients {
				for c := range conns {
					close(c.send)
				}
				// Hooks run inline so they finish before Run returns and storage closes.
				if h.hooks.OnDisconnect != nil {
					h.hooks.OnDisconnect(ctx, userID)
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			metrics.SetRealtimeConnections(0)
			return
		}
	}
}

func (h *Hub) fanOut(ctx context.Context, env *Envelope) {
	if env.target != nil {
		if _, ok := h.clients[env.target.userID][env.target]; ok {
			h.push(ctx, env.target, env.Event)
		}
		return
	}
	for _, userID := range env.UserIDs {
		for c := range h.clients[userID] {
			h.push(ctx, c, env.Event)
		}
	}
}

func (h *Hub) push(ctx context.Context, c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.log.Warn().Msg("client send buffer full, dropping connection")
		h.remove(ctx, c)
	}
}

func (h *Hub) remove(ctx context.Context, c *Client) {
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, exists := conns[c]; !exists {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
		if h.hooks.OnDisconnect != nil {
			go h.hooks.OnDisconnect(ctx, c.userID)
		}
	}
	metrics.SetRealtimeConnections(h.connectionCount())
}

func (h *Hub) connectionCount() int {
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// Serve upgrades the request and attaches the connection to userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	client := newClient(h, conn, userID)
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return fmt.Errorf("realtime hub stopped")
	}
	go client.writePump()
	go client.readPump()
	return nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
