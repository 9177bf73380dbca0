package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Priority is the urgency of an alert. Higher values escalate harder.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// MarshalJSON serializes priorities as their string names.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts the string names produced by MarshalJSON.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePriority(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority maps a config string to a Priority.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q", raw)
	}
}

// PriorityRule maps sources to a priority. Rules are evaluated in config
// order, first match wins. Pattern is matched case-insensitively against the
// source id and its client/system label. Critical marks the source for
// call-mode escalation: any transition to DOWN classifies as CRITICAL no
// matter what earlier rules said.
type PriorityRule struct {
	Pattern  string   `json:"pattern"`
	Client   string   `json:"client,omitempty"`
	System   string   `json:"system,omitempty"`
	Priority Priority `json:"priority"`
	Critical bool     `json:"critical,omitempty"`
}

// Matches reports whether the rule applies to the given source id and label.
func (r PriorityRule) Matches(sourceID, label string) bool {
	p := strings.ToLower(r.Pattern)
	return strings.Contains(strings.ToLower(sourceID), p) ||
		(label != "" && strings.Contains(strings.ToLower(label), p))
}
