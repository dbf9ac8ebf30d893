package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/types"
	"go.uber.org/zap"
)

// WebSocketService pushes per-run processing progress to connected clients.
// Clients subscribe per document id; the pipeline publishes through
// Publish.
type WebSocketService struct {
	upgrader    websocket.Upgrader
	mu          sync.Mutex
	subscribers map[string]map[chan types.ProcessingDocumentStatus]struct{}
}

func NewWebSocketService() *WebSocketService {
	return &WebSocketService{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
		subscribers: make(map[string]map[chan types.ProcessingDocumentStatus]struct{}),
	}
}

// Publish fans one progress update out to every subscriber of the run.
// Slow subscribers are skipped rather than blocking the pipeline.
func (s *WebSocketService) Publish(status types.ProcessingDocumentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers[status.DocumentID] {
		select {
		case ch <- status:
		default:
		}
	}
}

func (s *WebSocketService) subscribe(documentID string) chan types.ProcessingDocumentStatus {
	ch := make(chan types.ProcessingDocumentStatus, 16)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[documentID] == nil {
		s.subscribers[documentID] = make(map[chan types.ProcessingDocumentStatus]struct{})
	}
	s.subscribers[documentID][ch] = struct{}{}
	return ch
}

func (s *WebSocketService) unsubscribe(documentID string, ch chan types.ProcessingDocumentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers[documentID], ch)
	if len(s.subscribers[documentID]) == 0 {
		delete(s.subscribers, documentID)
	}
}

// HandleProgress upgrades the request and streams the run's progress until
// the client goes away.
func (s *WebSocketService) HandleProgress(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("document_id")
	if documentID == "" {
		http.Error(w, "document_id parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024) // 512KB max message size
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ch := s.subscribe(documentID)
	defer s.unsubscribe(documentID, ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Debug("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case status := <-ch:
			if err := conn.WriteJSON(status); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
