// Package sse provides Server-Sent Events client management for real-time communication.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/rs/zerolog"
)

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

// Message is a single server-sent event. An empty Event is sent as a plain data line.
type Message struct {
	Event string
	Data  string
}

// EventReload tells editors that the stored document changed underneath them.
const EventReload = "reload"

type Client struct {
	Msg        chan Message
	DocumentID model.DocumentID
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast delivers msg to every client watching documentID. Slow clients miss it.
func (s *SSEClients) Broadcast(documentID model.DocumentID, msg Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.DocumentID == documentID {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

// BroadcastJSON sends v encoded as JSON under the given event name.
func (s *SSEClients) BroadcastJSON(documentID model.DocumentID, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	s.Broadcast(documentID, Message{Event: event, Data: string(data)})
	return nil
}

func (m Message) write(w http.ResponseWriter) {
	if m.Event != "" {
		fmt.Fprintf(w, "event: %s\n", m.Event)
	}
	fmt.Fprintf(w, "data: %s\n\n", m.Data)
}

// ServeEvents streams events for the document named by the "document" query parameter.
func (s *SSEClients) ServeEvents(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("document")
	if documentID == "" {
		http.Error(w, config.ErrDocumentParamRequired, http.StatusBadRequest)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, config.ErrStreamingUnsupported, http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := &Client{
		Msg:        make(chan Message, 8),
		DocumentID: model.DocumentID(documentID),
	}
	s.Add(client)

	sseLogger.Debug().Str("document_id", documentID).Msg("SSE client connected")

	defer func() {
		s.Delete(client)
		sseLogger.Debug().Str("document_id", documentID).Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			msg.write(w)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
