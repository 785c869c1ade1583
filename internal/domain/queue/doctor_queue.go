package queue

import (
	"sync"
	"time"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
)

// EstimateWait projects the minutes until a newly queued patient is seen.
func EstimateWait(queueLen, avgConsultationMinutes int) int {
	return queueLen * avgConsultationMinutes
}

// Placement is what a push observed under the queue lock: a copy of the queued patient,
// the queue size after the push and the wait estimate at that size.
type Placement struct {
	Patient              entities.Patient
	QueueSize            int
	EstimatedWaitMinutes int
}

// DoctorQueue pairs a doctor with their patient queue. Each doctor has its own lock so
// assignments to different doctors do not contend. Patients handed out by the queue are
// copies; the queued structs are only touched under the lock.
type DoctorQueue struct {
	doctor *entities.Doctor

	mu       sync.Mutex
	patients *PatientQueue

	// admissions for the day in admittedDay, counted on push
	admittedDay time.Time
	admitted    int
}

// NewDoctorQueue creates an empty queue for the doctor
func NewDoctorQueue(doctor *entities.Doctor) *DoctorQueue {
	return &DoctorQueue{
		doctor:   doctor,
		patients: NewPatientQueue(),
	}
}

// Doctor returns the roster entry this queue belongs to
func (d *DoctorQueue) Doctor() *entities.Doctor {
	return d.doctor
}

// ID is shorthand for Doctor().ID
func (d *DoctorQueue) ID() string {
	return d.doctor.ID
}

// Push enqueues the patient and marks them as waiting
func (d *DoctorQueue) Push(p *entities.Patient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.push(p)
}

// PushAndEstimate enqueues the patient and returns what the queue looked like
// immediately after the push, under the same lock.
func (d *DoctorQueue) PushAndEstimate(p *entities.Patient) Placement {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.push(p)
	size := d.patients.Size()
	return Placement{
		Patient:              *p,
		QueueSize:            size,
		EstimatedWaitMinutes: EstimateWait(size, d.doctor.AvgConsultationMinutes),
	}
}

func (d *DoctorQueue) push(p *entities.Patient) {
	p.Status = entities.PatientStatusInQueue
	d.patients.Push(p)

	day := startOfDay(p.ArrivedAt)
	if !day.Equal(d.admittedDay) {
		d.admittedDay = day
		d.admitted = 0
	}
	d.admitted++
}

func startOfDay(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, t.Location())
}

// PopHighest removes the next patient; false means the queue is drained.
func (d *DoctorQueue) PopHighest() (*entities.Patient, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.patients.PopHighest()
}

// Size returns the current queue length
func (d *DoctorQueue) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.patients.Size()
}

// EstimateWait returns queue length times the doctor's average consultation time.
func (d *DoctorQueue) EstimateWait() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return EstimateWait(d.patients.Size(), d.doctor.AvgConsultationMinutes)
}

// AdmittedOn returns how many patients were pushed for the calendar day of day.
// Patients already seen still count.
func (d *DoctorQueue) AdmittedOn(day time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !startOfDay(day).Equal(d.admittedDay) {
		return 0
	}
	return d.admitted
}

// AtCapacity reports whether the doctor has already taken their daily capacity of
// admissions on day. Zero capacity means unlimited.
func (d *DoctorQueue) AtCapacity(day time.Time) bool {
	if d.doctor.DailyCapacity == 0 {
		return false
	}
	return d.AdmittedOn(day) >= d.doctor.DailyCapacity
}

// Snapshot returns copies of the waiting patients in consultation order
func (d *DoctorQueue) Snapshot() []entities.Patient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.patients.Snapshot()
}
