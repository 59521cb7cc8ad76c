package multiplayer

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Topic returns the broadcast topic for a game code.
func Topic(code string) string {
	return "game-" + code
}

// Subscriber receives full-record snapshots for one topic.
type Subscriber struct {
	Topic   string
	Channel chan GameRecord
}

// Hub fans every published record out to the subscribers of its topic.
// Records carry a version bumped on each mutation under the per-code lock,
// and the hub delivers them in publish order, so each subscriber observes a
// non-decreasing version sequence. A subscriber too slow to drain its
// channel is dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[chan GameRecord]bool
	register   chan Subscriber
	unregister chan Subscriber
	broadcast  chan GameRecord
}

// NewHub starts the hub's dispatch loop.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]map[chan GameRecord]bool),
		register:   make(chan Subscriber, 10),
		unregister: make(chan Subscriber, 10),
		broadcast:  make(chan GameRecord, 100),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if h.clients[sub.Topic] == nil {
				h.clients[sub.Topic] = make(map[chan GameRecord]bool)
			}
			h.clients[sub.Topic][sub.Channel] = true
			log.Info().Str("topic", sub.Topic).Int("clients", len(h.clients[sub.Topic])).Msg("subscriber registered")
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[sub.Topic]; ok {
				if clients[sub.Channel] {
					delete(clients, sub.Channel)
					close(sub.Channel)
				}
				if len(clients) == 0 {
					delete(h.clients, sub.Topic)
				}
			}
			h.mu.Unlock()

		case record := <-h.broadcast:
			topic := Topic(record.Code)
			h.mu.RLock()
			var slow []chan GameRecord
			for ch := range h.clients[topic] {
				select {
				case ch <- record:
				default:
					slow = append(slow, ch)
				}
			}
			h.mu.RUnlock()
			if len(slow) > 0 {
				h.mu.Lock()
				for _, ch := range slow {
					if clients, ok := h.clients[topic]; ok && clients[ch] {
						log.Warn().Str("topic", topic).Msg("dropping slow subscriber")
						delete(clients, ch)
						close(ch)
					}
				}
				if len(h.clients[topic]) == 0 {
					delete(h.clients, topic)
				}
				h.mu.Unlock()
			}
		}
	}
}

// Subscribe joins the topic for a game code and returns the receive channel.
func (h *Hub) Subscribe(code string) Subscriber {
	sub := Subscriber{Topic: Topic(code), Channel: make(chan GameRecord, 16)}
	h.register <- sub
	return sub
}

// Unsubscribe leaves the topic and closes the subscriber's channel.
func (h *Hub) Unsubscribe(sub Subscriber) {
	h.unregister <- sub
}

// Publish broadcasts the full record to every subscriber of its code.
func (h *Hub) Publish(record GameRecord) {
	h.broadcast <- record
}
