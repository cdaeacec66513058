// Package realtime fans out JSON events to websocket subscribers by topic.
// Topics are plain strings such as "user:<id>" and "group:<id>".
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Event is the frame written to subscribers.
type Event struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(topic, eventType string, data any)
}

type subscriber struct {
	topics []string
	send   chan []byte
	once   sync.Once
}

func (s *subscriber) close() { s.once.Do(func() { close(s.send) }) }

// Hub tracks subscribers per topic. A subscriber whose buffer is full is
// dropped rather than blocking publishers.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[*subscriber]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Subscribe registers an in-process listener on topics. The returned cancel
// func unregisters it and closes the channel.
func (h *Hub) Subscribe(topics ...string) (<-chan []byte, func()) {
	s := h.add(topics)
	return s.send, func() { h.remove(s) }
}

func (h *Hub) add(topics []string) *subscriber {
	s := &subscriber{topics: topics, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		if h.topics[t] == nil {
			h.topics[t] = make(map[*subscriber]struct{})
		}
		h.topics[t][s] = struct{}{}
	}
	return s
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	for _, t := range s.topics {
		delete(h.topics[t], s)
		if len(h.topics[t]) == 0 {
			delete(h.topics, t)
		}
	}
	h.mu.Unlock()
	s.close()
}

// Publish sends data to every subscriber of topic.
func (h *Hub) Publish(topic, eventType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.log.Warn("realtime: marshal event", zap.String("topic", topic), zap.Error(err))
		return
	}
	frame, _ := json.Marshal(Event{Topic: topic, Type: eventType, Data: raw})

	var slow []*subscriber
	h.mu.RLock()
	for s := range h.topics[topic] {
		select {
		case s.send <- frame:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warn("realtime: dropping slow subscriber", zap.String("topic", topic))
		h.remove(s)
	}
}

// Subscribers returns the number of listeners on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Serve upgrades the request and streams events for topics until the client
// disconnects. Incoming frames are read only to process control messages.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topics ...string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	s := h.add(topics)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, s)
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(s)
	<-done
	return conn.Close()
}

func (h *Hub) writePump(conn *websocket.Conn, s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case frame, ok := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				// unblock the read loop
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
