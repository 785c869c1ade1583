package entities

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoAvailableDoctor is returned when routing finds neither a suitable nor a General doctor.
var ErrNoAvailableDoctor = errors.New("no available doctor")

// Assignment is the result of routing a patient to a doctor's queue
type Assignment struct {
	PatientID            string         `json:"patient_id"`
	DoctorID             string         `json:"doctor_id"`
	Specialization       Specialization `json:"specialization"`
	EstimatedWaitMinutes int            `json:"estimated_wait_minutes"`
	QueueSize            int            `json:"queue_size"`
	AssignedAt           time.Time      `json:"assigned_at"`
}

// AssignmentEvent is emitted once per assignment for the communication channels
type AssignmentEvent struct {
	ID                   string    `json:"id"`
	PatientID            string    `json:"patient_id"`
	PatientName          string    `json:"patient_name"`
	Contact              string    `json:"contact,omitempty"`
	Source               Source    `json:"source"`
	DoctorID             string    `json:"doctor_id"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
	Message              string    `json:"message"`
	Timestamp            time.Time `json:"timestamp"`
}

// AssignmentMessage renders the free-text notice sent to the patient.
func AssignmentMessage(doctorID string, estimatedWaitMinutes int) string {
	return fmt.Sprintf("Assigned to Dr. %s. Estimated wait: %d minutes", doctorID, estimatedWaitMinutes)
}
