package entities

import "strings"

// Condition is a medical condition tag with its inherent severity (1-5).
type Condition struct {
	Name     string `json:"name"`
	Severity int    `json:"severity"`
}

// Known condition names.
const (
	ConditionMinorCheckup        = "Minor Checkup"
	ConditionRoutinePrescription = "Routine Prescription"
	ConditionChronicFollowUp     = "Chronic Disease Follow-up"
	ConditionAcutePain           = "Acute Pain"
	ConditionSevereSymptoms      = "Severe Symptoms"

	// ConditionUnspecified stands in when no condition was given at check-in.
	ConditionUnspecified = "Unspecified"
)

const (
	MinSeverity = 1
	MaxSeverity = 5
)

// ConditionCatalog lists every condition the clinic triages, in ascending severity.
var ConditionCatalog = []Condition{
	{Name: ConditionMinorCheckup, Severity: 1},
	{Name: ConditionRoutinePrescription, Severity: 2},
	{Name: ConditionChronicFollowUp, Severity: 3},
	{Name: ConditionAcutePain, Severity: 4},
	{Name: ConditionSevereSymptoms, Severity: 5},
}

// LookupCondition resolves a condition by name (case-insensitive). Unknown names are
// returned as-is with the lowest severity so they still route to a General doctor; a
// blank name becomes ConditionUnspecified.
func LookupCondition(name string) (Condition, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Condition{Name: ConditionUnspecified, Severity: MinSeverity}, false
	}
	for _, c := range ConditionCatalog {
		if strings.EqualFold(c.Name, trimmed) {
			return c, true
		}
	}
	return Condition{Name: trimmed, Severity: MinSeverity}, false
}
