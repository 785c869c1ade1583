package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicqueue/internal/api/handlers"
	"github.com/zatekoja/clinicqueue/internal/application/services"
	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

var clinicOpen = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type MockAdmitter struct {
	mock.Mock
}

func (m *MockAdmitter) Admit(ctx context.Context, req services.AdmitRequest) (*services.Admission, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Admission), args.Error(1)
}

type clinic struct {
	registry      *services.DoctorRegistry
	admissions    *services.AdmissionService
	consultations *services.ConsultationService
	mux           *http.ServeMux
}

func newClinic(t *testing.T, admitter handlers.Admitter) *clinic {
	t.Helper()
	registry := services.NewDoctorRegistry()
	for _, d := range []*entities.Doctor{
		{ID: "DOC-1", Specialization: entities.SpecializationGeneral, AvgConsultationMinutes: 10},
		{ID: "DOC-2", Specialization: entities.SpecializationOrthopedics, AvgConsultationMinutes: 20},
	} {
		_, err := registry.Register(d)
		require.NoError(t, err)
	}

	clock := providers.FixedClock{T: clinicOpen}
	assigner := services.NewAssignmentService(registry, nil, nil, clock, nil)
	c := &clinic{
		registry:      registry,
		admissions:    services.NewAdmissionService(assigner, clock),
		consultations: services.NewConsultationService(registry, clock, nil),
		mux:           http.NewServeMux(),
	}
	if admitter == nil {
		admitter = c.admissions
	}

	h := handlers.NewQueueHandler(admitter, c.consultations, registry)
	c.mux.HandleFunc("GET /health", h.Health)
	c.mux.HandleFunc("GET /api/doctors", h.ListDoctors)
	c.mux.HandleFunc("GET /api/doctors/{id}/queue", h.GetQueue)
	c.mux.HandleFunc("POST /api/doctors/{id}/next", h.NextPatient)
	c.mux.HandleFunc("POST /api/patients", h.AdmitPatient)
	c.mux.HandleFunc("POST /api/patients/{id}/complete", h.CompleteConsultation)
	return c
}

func (c *clinic) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	c.mux.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(v))
}

func TestQueueHandler_AdmitPatient(t *testing.T) {
	c := newClinic(t, nil)

	rr := c.do(t, http.MethodPost, "/api/patients",
		`{"name":"Ada Obi","contact":"+2348001234567","source":"WhatsApp","condition":"Acute Pain"}`)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var admission services.Admission
	decode(t, rr, &admission)
	// both queues are empty, so the lower doctor id wins the tie
	assert.Equal(t, "DOC-1", admission.Assignment.DoctorID)
	assert.Equal(t, 10, admission.Assignment.EstimatedWaitMinutes)
	assert.Equal(t, 40.0, admission.Patient.Priority)
	assert.Equal(t, entities.PatientStatusInQueue, admission.Patient.Status)

	rr = c.do(t, http.MethodPost, "/api/patients", `{"name":"Bola","source":"App","condition":"Acute Pain"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	decode(t, rr, &admission)
	assert.Equal(t, "DOC-2", admission.Assignment.DoctorID)
	assert.Equal(t, 20, admission.Assignment.EstimatedWaitMinutes)
}

func TestQueueHandler_AdmitPatient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", apperrors.NewValidationError("condition is required"), http.StatusBadRequest},
		{"no doctor", apperrors.NewUnavailableError("no Neurology or General doctor", entities.ErrNoAvailableDoctor), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admitter := new(MockAdmitter)
			admitter.On("Admit", mock.Anything, mock.Anything).Return(nil, tt.err)
			c := newClinic(t, admitter)

			rr := c.do(t, http.MethodPost, "/api/patients", `{"name":"X","condition":"Severe Symptoms"}`)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body map[string]string
			decode(t, rr, &body)
			assert.NotEmpty(t, body["error"])
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body["error"])
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		c := newClinic(t, nil)
		rr := c.do(t, http.MethodPost, "/api/patients", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestQueueHandler_ListDoctorsAndQueue(t *testing.T) {
	c := newClinic(t, nil)
	for _, body := range []string{
		`{"name":"A","source":"App","condition":"Minor Checkup"}`,
		`{"name":"B","source":"Walk-in","condition":"Severe Symptoms"}`,
	} {
		require.Equal(t, http.StatusCreated, c.do(t, http.MethodPost, "/api/patients", body).Code)
	}

	rr := c.do(t, http.MethodGet, "/api/doctors", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var list struct {
		Doctors []struct {
			ID                   string `json:"id"`
			Specialization       string `json:"specialization"`
			QueueSize            int    `json:"queue_size"`
			EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
		} `json:"doctors"`
		Count int `json:"count"`
	}
	decode(t, rr, &list)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "DOC-1", list.Doctors[0].ID)
	assert.Equal(t, 2, list.Doctors[0].QueueSize)
	assert.Equal(t, 20, list.Doctors[0].EstimatedWaitMinutes)
	assert.Equal(t, 0, list.Doctors[1].QueueSize)

	rr = c.do(t, http.MethodGet, "/api/doctors/DOC-1/queue", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view handlers.QueueView
	decode(t, rr, &view)
	require.Len(t, view.Patients, 2)
	assert.Equal(t, "B", view.Patients[0].Name, "severe symptoms are seen first")
	assert.Equal(t, "A", view.Patients[1].Name)

	rr = c.do(t, http.MethodGet, "/api/doctors/DOC-404/queue", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQueueHandler_ConsultationFlow(t *testing.T) {
	c := newClinic(t, nil)

	rr := c.do(t, http.MethodPost, "/api/doctors/DOC-1/next", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	require.Equal(t, http.StatusCreated, c.do(t, http.MethodPost, "/api/patients", `{"name":"A","condition":"Minor Checkup"}`).Code)

	rr = c.do(t, http.MethodPost, "/api/doctors/DOC-1/next", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var patient entities.Patient
	decode(t, rr, &patient)
	assert.Equal(t, entities.PatientStatusInConsultation, patient.Status)

	rr = c.do(t, http.MethodPost, "/api/patients/"+patient.ID+"/complete", "")
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &patient)
	assert.Equal(t, entities.PatientStatusDone, patient.Status)

	rr = c.do(t, http.MethodPost, "/api/patients/"+patient.ID+"/complete", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = c.do(t, http.MethodPost, "/api/doctors/DOC-404/next", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQueueHandler_Health(t *testing.T) {
	c := newClinic(t, nil)

	rr := c.do(t, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	decode(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["doctors"])
}
