package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
)

// SSEHandler streams assignment events to waiting-room boards and doctor screens
type SSEHandler struct {
	eventBus  providers.EventBus
	board     QueueBoard
	heartbeat time.Duration

	mu      sync.RWMutex
	clients map[string]int // channel -> connected clients
}

// NewSSEHandler creates a new SSE handler. board is used to reject unknown doctors
// and may be nil.
func NewSSEHandler(eventBus providers.EventBus, board QueueBoard) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		board:     board,
		heartbeat: 30 * time.Second,
		clients:   make(map[string]int),
	}
}

// WithHeartbeat overrides the keep-alive interval
func (h *SSEHandler) WithHeartbeat(d time.Duration) *SSEHandler {
	h.heartbeat = d
	return h
}

// StreamAssignments streams every assignment made in the clinic
// GET /api/stream/assignments
func (h *SSEHandler) StreamAssignments(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, providers.EventChannelAssignments, map[string]interface{}{
		"channel": providers.EventChannelAssignments,
	})
}

// StreamDoctorAssignments streams assignments for a single doctor
// GET /api/stream/doctors/{id}
func (h *SSEHandler) StreamDoctorAssignments(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}
	if h.board != nil {
		if _, err := h.board.Get(doctorID); err != nil {
			respondWithAppError(r.Context(), w, err)
			return
		}
	}

	h.stream(w, r, providers.GetDoctorChannel(doctorID), map[string]interface{}{
		"doctor_id": doctorID,
	})
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, channel string, hello map[string]interface{}) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx).With().Str("channel", channel).Logger()

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventChan, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe to channel")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.registerClient(channel)
	defer h.unregisterClient(channel)

	hello["timestamp"] = time.Now()
	h.sendEvent(w, "connected", hello)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Client disconnected from stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, "assignment", publicEvent(event))
			flusher.Flush()
		}
	}
}

// publicEvent strips the patient's contact before the event reaches a shared screen
func publicEvent(event *entities.AssignmentEvent) *entities.AssignmentEvent {
	out := *event
	out.Contact = ""
	return &out
}

func (h *SSEHandler) registerClient(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[channel]++
}

func (h *SSEHandler) unregisterClient(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[channel] <= 1 {
		delete(h.clients, channel)
		return
	}
	h.clients[channel]--
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}
