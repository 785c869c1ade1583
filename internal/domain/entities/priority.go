package entities

import "time"

// Urgency returns the condition's severity clamped into [MinSeverity, MaxSeverity].
func Urgency(c Condition) int {
	switch {
	case c.Severity < MinSeverity:
		return MinSeverity
	case c.Severity > MaxSeverity:
		return MaxSeverity
	default:
		return c.Severity
	}
}

// DelayMinutes is the number of whole minutes the patient arrived after the scheduled
// time. Early or on-time arrival yields zero.
func DelayMinutes(scheduledAt, arrivedAt time.Time) int {
	late := arrivedAt.Sub(scheduledAt)
	if late <= 0 {
		return 0
	}
	return int(late / time.Minute)
}

// SourceAdjustment is the small channel nudge applied on top of urgency and delay.
func SourceAdjustment(s Source) int {
	switch s {
	case SourceWalkIn:
		return -1
	case SourceApp:
		return 1
	default:
		return 0
	}
}

// ComputePriority ranks a patient: urgency dominates with weight 10, each overdue minute
// adds one, and the source channel breaks near-ties. Higher is seen sooner.
func ComputePriority(urgency int, scheduledAt, arrivedAt time.Time, source Source) float64 {
	return float64(urgency*10 + DelayMinutes(scheduledAt, arrivedAt) + SourceAdjustment(source))
}
