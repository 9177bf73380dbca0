package monitor

import (
	"monitoring-service/internal/models"
)

// Classifier maps transitions to priorities through an ordered rule list,
// first match wins, default NORMAL.
type Classifier struct {
	rules []models.PriorityRule
}

func NewClassifier(rules []models.PriorityRule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the priority for a transition plus the matched rule, if
// any. Two overrides apply after rule matching: a transition to DOWN on a
// source tagged critical by any matching rule is always CRITICAL, even when a
// rule ordered earlier won the priority match; and a recovery to OK is capped
// at NORMAL regardless of what the outage classified as.
func (c *Classifier) Classify(t models.Transition, label string) (models.Priority, *models.PriorityRule) {
	var matched *models.PriorityRule
	criticalTagged := false
	for i := range c.rules {
		if !c.rules[i].Matches(t.SourceID, label) {
			continue
		}
		if matched == nil {
			matched = &c.rules[i]
		}
		if c.rules[i].Critical {
			criticalTagged = true
		}
	}

	priority := models.PriorityNormal
	if matched != nil {
		priority = matched.Priority
	}

	if t.ToStatus == models.StatusDown && criticalTagged {
		priority = models.PriorityCritical
	}
	if t.ToStatus == models.StatusOK && priority > models.PriorityNormal {
		priority = models.PriorityNormal
	}

	return priority, matched
}
