package domain

import (
	"strings"
	"time"
)

// Color is a Manchester-style triage classification
type Color string

// Triage colors
const (
	ColorRed    Color = "RED"
	ColorYellow Color = "YELLOW"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
)

// Colors returns every triage color, most urgent first
func Colors() []Color {
	return []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}
}

// ParseColor accepts exactly one of the four color names
func ParseColor(s string) (Color, bool) {
	switch Color(s) {
	case ColorRed, ColorYellow, ColorGreen, ColorBlue:
		return Color(s), true
	}
	return "", false
}

// Priority is derived from Color and never set independently
type Priority string

// Priority levels
const (
	PriorityEmergency Priority = "EMERGENCY"
	PriorityUrgent    Priority = "URGENT"
	PriorityStandard  Priority = "STANDARD"
	PriorityLow       Priority = "LOW"
)

// Priority returns the priority for c
func (c Color) Priority() Priority {
	switch c {
	case ColorRed:
		return PriorityEmergency
	case ColorYellow:
		return PriorityUrgent
	case ColorGreen:
		return PriorityStandard
	case ColorBlue:
		return PriorityLow
	}
	return ""
}

// Urgency is the scheduling hint attached to a routing decision
type Urgency string

// Urgency values
const (
	UrgencyImmediate   Urgency = "Immediate"
	UrgencyWithin30Min Urgency = "Within 30 min"
	UrgencyWithin1Hour Urgency = "Within 1 hour"
	UrgencyStandard    Urgency = "Standard"
)

// Urgencies returns every urgency value, most urgent first
func Urgencies() []Urgency {
	return []Urgency{UrgencyImmediate, UrgencyWithin30Min, UrgencyWithin1Hour, UrgencyStandard}
}

// ParseUrgency accepts exactly one of the four urgency strings
func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(s) {
	case UrgencyImmediate, UrgencyWithin30Min, UrgencyWithin1Hour, UrgencyStandard:
		return Urgency(s), true
	}
	return "", false
}

// DefaultUrgency is the fallback used when the routing output carries an
// unrecognized urgency
func (c Color) DefaultUrgency() Urgency {
	switch c {
	case ColorRed:
		return UrgencyImmediate
	case ColorYellow:
		return UrgencyWithin30Min
	case ColorGreen:
		return UrgencyWithin1Hour
	case ColorBlue:
		return UrgencyStandard
	}
	return ""
}

// Classification is the triage decision for a record
type Classification struct {
	Color            Color    `json:"color"`
	Priority         Priority `json:"priority"`
	Reasoning        string   `json:"reasoning"`
	RiskFactors      []string `json:"risk_factors"`
	MatchedProtocols []string `json:"matched_protocols"`
}

// NewClassification builds a classification whose priority comes from color
func NewClassification(color Color, reasoning string, riskFactors, matchedProtocols []string) *Classification {
	if riskFactors == nil {
		riskFactors = []string{}
	}
	if matchedProtocols == nil {
		matchedProtocols = []string{}
	}
	return &Classification{
		Color:            color,
		Priority:         color.Priority(),
		Reasoning:        reasoning,
		RiskFactors:      riskFactors,
		MatchedProtocols: matchedProtocols,
	}
}

// Clone returns a deep copy
func (c *Classification) Clone() *Classification {
	if c == nil {
		return nil
	}
	cp := *c
	cp.RiskFactors = cloneStrings(c.RiskFactors)
	cp.MatchedProtocols = cloneStrings(c.MatchedProtocols)
	return &cp
}

// Departments the routing stage may choose from, with their scope
var Departments = []struct {
	Name  string
	Scope string
}{
	{"Cardiology", "chest pain, cardiac symptoms, arrhythmias"},
	{"Orthopedics", "fractures, dislocations, musculoskeletal trauma"},
	{"General Surgery", "abdominal emergencies, surgical conditions"},
	{"Neurology", "stroke symptoms, seizures, severe headaches"},
	{"Pediatrics", "patients under 18"},
	{"Obstetrics", "pregnancy-related conditions"},
	{"General Practice", "general illness, infections, non-specific symptoms"},
	{"Emergency Medicine", "critical/unstable patients"},
}

// RoutingDecision sends a classified patient to a department
type RoutingDecision struct {
	Department        string   `json:"department"`
	DoctorType        string   `json:"doctor_type"`
	Urgency           Urgency  `json:"urgency"`
	RoomType          *string  `json:"room_type"`
	PreliminaryOrders []string `json:"preliminary_orders"`
	Contraindications []string `json:"contraindications"`
	NotesForStaff     string   `json:"notes_for_staff"`
}

// Clone returns a deep copy
func (r *RoutingDecision) Clone() *RoutingDecision {
	if r == nil {
		return nil
	}
	cp := *r
	cp.RoomType = cloneString(r.RoomType)
	cp.PreliminaryOrders = cloneStrings(r.PreliminaryOrders)
	cp.Contraindications = cloneStrings(r.Contraindications)
	return &cp
}

// ConflictingOrders returns the orders that mention one of the allergies,
// compared case-insensitively
func ConflictingOrders(allergies, orders []string) []string {
	var out []string
	for _, o := range orders {
		lo := strings.ToLower(o)
		for _, a := range allergies {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" && strings.Contains(lo, a) {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

// TriageResult aggregates one successful pipeline run
type TriageResult struct {
	SessionID      string           `json:"session_id"`
	Timestamp      time.Time        `json:"timestamp"`
	Record         *PatientRecord   `json:"anamnesis"`
	Classification *Classification  `json:"classification"`
	Routing        *RoutingDecision `json:"routing"`
}

// Clone returns a deep copy
func (t *TriageResult) Clone() *TriageResult {
	if t == nil {
		return nil
	}
	return &TriageResult{
		SessionID:      t.SessionID,
		Timestamp:      t.Timestamp,
		Record:         t.Record.Clone(),
		Classification: t.Classification.Clone(),
		Routing:        t.Routing.Clone(),
	}
}
