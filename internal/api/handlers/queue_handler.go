package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zatekoja/clinicqueue/internal/application/services"
	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/queue"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// Admitter checks patients in and assigns them
type Admitter interface {
	Admit(ctx context.Context, req services.AdmitRequest) (*services.Admission, error)
}

// ConsultationCaller moves patients from the queue into consultation and out again
type ConsultationCaller interface {
	NextPatient(ctx context.Context, doctorID string) (*entities.Patient, bool, error)
	Complete(ctx context.Context, patientID string) (*entities.Patient, error)
}

// QueueBoard exposes the live doctor queues
type QueueBoard interface {
	Doctors() []*queue.DoctorQueue
	Get(id string) (*queue.DoctorQueue, error)
}

// QueueHandler handles check-in and queue HTTP requests
type QueueHandler struct {
	admitter      Admitter
	consultations ConsultationCaller
	board         QueueBoard
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(admitter Admitter, consultations ConsultationCaller, board QueueBoard) *QueueHandler {
	return &QueueHandler{
		admitter:      admitter,
		consultations: consultations,
		board:         board,
	}
}

// DoctorSummary is a doctor with the current state of their queue
type DoctorSummary struct {
	*entities.Doctor
	QueueSize            int `json:"queue_size"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}

// QueueView is one doctor's waiting patients in consultation order
type QueueView struct {
	DoctorID             string             `json:"doctor_id"`
	EstimatedWaitMinutes int                `json:"estimated_wait_minutes"`
	Patients             []entities.Patient `json:"patients"`
}

// Health handles GET /health
func (h *QueueHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"doctors": len(h.board.Doctors()),
	})
}

// ListDoctors handles GET /api/doctors
func (h *QueueHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	queues := h.board.Doctors()

	summaries := make([]DoctorSummary, 0, len(queues))
	for _, dq := range queues {
		summaries = append(summaries, DoctorSummary{
			Doctor:               dq.Doctor(),
			QueueSize:            dq.Size(),
			EstimatedWaitMinutes: dq.EstimateWait(),
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctors": summaries,
		"count":   len(summaries),
	})
}

// GetQueue handles GET /api/doctors/{id}/queue
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}

	dq, err := h.board.Get(doctorID)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, QueueView{
		DoctorID:             dq.ID(),
		EstimatedWaitMinutes: dq.EstimateWait(),
		Patients:             dq.Snapshot(),
	})
}

// AdmitPatient handles POST /api/patients
func (h *QueueHandler) AdmitPatient(w http.ResponseWriter, r *http.Request) {
	var req services.AdmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	admission, err := h.admitter.Admit(r.Context(), req)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, admission)
}

// NextPatient handles POST /api/doctors/{id}/next
func (h *QueueHandler) NextPatient(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}

	patient, ok, err := h.consultations.NextPatient(r.Context(), doctorID)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondWithJSON(w, http.StatusOK, patient)
}

// CompleteConsultation handles POST /api/patients/{id}/complete
func (h *QueueHandler) CompleteConsultation(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	patient, err := h.consultations.Complete(r.Context(), patientID)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, patient)
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps AppError types to status codes. Internal details are logged,
// not returned.
func respondWithAppError(ctx context.Context, w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypeUnavailable:
		respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
	default:
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("Request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
