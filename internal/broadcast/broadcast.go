package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"jollofwars/internal/events"
)

// Message is one server-sent event: Event names it, Data is its JSON payload.
type Message struct {
	Event string
	Data  string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool
}

type finishPayload struct {
	SessionID string `json:"sessionId"`
	Team      string `json:"team"`
	Score     int    `json:"score"`
}

// NewBroadcaster forwards bus events to every subscriber until the bus
// channels are closed.
func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan Message]bool),
	}
	go func() {
		for ev := range bus.Submissions {
			b.BroadcastJSON("score", ev.Entry)
		}
	}()
	go func() {
		for ev := range bus.Finishes {
			b.BroadcastJSON("gameFinished", finishPayload{SessionID: ev.SessionID, Team: string(ev.Team), Score: ev.Score})
		}
	}()
	return b
}

func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

func (b *Broadcaster) BroadcastJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Broadcast] marshal %s: %v\n", event, err)
		return
	}
	b.Broadcast(event, string(data))
}

func (b *Broadcaster) Broadcast(event string, data string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			// skip clients with full data channels
		}
	}
}
