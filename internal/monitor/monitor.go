// Package monitor streams behavior tree lifecycle events to websocket clients.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/bhtree/internal/core/events/bus"
	"github.com/zeusync/bhtree/internal/core/observability/log"
)

const (
	sendBuffer   = 256
	writeTimeout = 5 * time.Second
	pingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the JSON frame sent for every bus event.
type Message struct {
	Type string    `json:"type"`
	Tree string    `json:"tree"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	tree string
	sub  bus.Subscription
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Server fans bus events out to connected clients. Every client holds its own
// bus subscription for as long as it is connected; ?tree=name narrows it to
// one tree. Clients that fall behind are dropped.
type Server struct {
	events bus.EventBus
	logger log.Log
	path   string

	mu      sync.Mutex
	clients map[*client]struct{}
	server  *http.Server
}

func New(events bus.EventBus, logger log.Log, path string) *Server {
	if logger == nil {
		logger = log.Provide()
	}
	if path == "" {
		path = "/ws"
	}
	return &Server{
		events:  events,
		logger:  logger.With(log.String("component", "monitor")),
		path:    path,
		clients: make(map[*client]struct{}),
	}
}

// Handler serves the websocket endpoint and /stats.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebSocket)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Start listens on addr in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("monitor listening", log.String("addr", ln.Addr().String()), log.String("path", s.path))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitor server failed", log.Err(err))
		}
	}()
	return nil
}

// Stop disconnects every client, cancelling its subscription, and shuts the
// listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	subs := make([]bus.Subscription, 0, len(s.clients))
	for c := range s.clients {
		delete(s.clients, c)
		c.close()
		subs = append(subs, c.sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		_ = s.events.Unsubscribe(sub)
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Clients reports the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// deliver queues events for c. It is the bus handler of c's subscription.
func (s *Server) deliver(c *client) bus.EventHandler {
	return func(e bus.Event) error {
		payload, err := json.Marshal(Message{Type: e.Type(), Tree: e.Source(), Time: e.Timestamp(), Data: e.Data()})
		if err != nil {
			return err
		}

		s.mu.Lock()
		if _, ok := s.clients[c]; !ok {
			s.mu.Unlock()
			return nil
		}
		select {
		case c.send <- payload:
			s.mu.Unlock()
			return nil
		default:
		}
		delete(s.clients, c)
		c.close()
		s.mu.Unlock()

		s.logger.Warn("dropping slow monitor client", log.String("remote", c.conn.RemoteAddr().String()))
		return s.events.Unsubscribe(c.sub)
	}
}

// remove forgets c and cancels its subscription; safe to call more than once.
func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	if ok {
		delete(s.clients, c)
		c.close()
	}
	s.mu.Unlock()
	if ok {
		_ = s.events.Unsubscribe(c.sub)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Err(err))
		return
	}
	c := &client{conn: conn, tree: r.URL.Query().Get("tree"), send: make(chan []byte, sendBuffer)}

	handler := s.deliver(c)
	if c.tree != "" {
		handler = bus.Filtered(handler, bus.FromSource(c.tree))
	}
	if c.sub, err = s.events.Subscribe(bus.AnyType, handler); err != nil {
		s.logger.Error("monitor subscribe failed", log.Err(err))
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("monitor client connected", log.String("remote", conn.RemoteAddr().String()), log.String("tree", c.tree))

	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client input and notices disconnects.
func (s *Server) readPump(c *client) {
	defer s.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Clients int         `json:"clients"`
		Bus     bus.Metrics `json:"bus"`
	}{s.Clients(), s.events.Metrics()})
}
