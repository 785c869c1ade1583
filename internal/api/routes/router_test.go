package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicqueue/internal/api/handlers"
	"github.com/zatekoja/clinicqueue/internal/application/services"
	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
)

func TestRouter_SetupRoutes(t *testing.T) {
	registry := services.NewDoctorRegistry()
	_, err := registry.Register(&entities.Doctor{ID: "DOC-1", Specialization: entities.SpecializationGeneral, AvgConsultationMinutes: 15})
	require.NoError(t, err)

	clock := providers.FixedClock{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	assigner := services.NewAssignmentService(registry, nil, nil, clock, nil)
	handler := handlers.NewQueueHandler(
		services.NewAdmissionService(assigner, clock),
		services.NewConsultationService(registry, clock, nil),
		registry,
	)
	server := httptest.NewServer(NewRouter(handler, nil, nil, nil).SetupRoutes())
	defer server.Close()

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/doctors", "", http.StatusOK},
		{http.MethodPost, "/api/doctors/DOC-1/next", "", http.StatusNoContent},
		{http.MethodPost, "/api/patients", `{"name":"Ada","condition":"Minor Checkup"}`, http.StatusCreated},
		{http.MethodGet, "/api/doctors/DOC-1/queue", "", http.StatusOK},
		{http.MethodPost, "/api/doctors/DOC-1/next", "", http.StatusOK},
		{http.MethodPost, "/api/patients/unknown/complete", "", http.StatusNotFound},
		{http.MethodDelete, "/api/doctors", "", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/api/patients", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, server.URL+tt.path, strings.NewReader(tt.body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, tt.want, resp.StatusCode, "%s %s", tt.method, tt.path)
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
	}
}

func TestRouter_StreamRoutesRequireEventBus(t *testing.T) {
	registry := services.NewDoctorRegistry()
	handler := handlers.NewQueueHandler(nil, services.NewConsultationService(registry, nil, nil), registry)

	server := httptest.NewServer(NewRouter(handler, nil, nil, nil).SetupRoutes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/stream/assignments")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
