package extraction

import (
	"strings"

	"health-report-agent/internal/consultation"
)

// Result is the classified content of one transcript, per category, in the
// order each item was first seen.
type Result struct {
	Symptoms       []string `json:"symptoms"`
	Causes         []string `json:"causes"`
	Medications    []string `json:"medications"`
	EmergencyNotes []string `json:"emergency_notes"`
}

// Classifier sorts transcript entries into report categories using fixed
// keyword rules.
//
// User messages are classified whole: a qualifying message lands in Symptoms
// verbatim. Assistant messages are split into sentences and every sentence is
// tested on its own against the medication, cause and emergency sets, so one
// sentence may land in several categories. The two paths produce different
// output for the same text and must stay separate.
type Classifier struct {
	symptomHints keywordSet
	medications  keywordSet
	causes       keywordSet
	emergency    keywordSet
	limits       Limits
}

func NewClassifier(kw Keywords, limits Limits) *Classifier {
	return &Classifier{
		symptomHints: newKeywordSet(kw.SymptomHints),
		medications:  newKeywordSet(kw.Medications),
		causes:       newKeywordSet(kw.Causes),
		emergency:    newKeywordSet(kw.Emergency),
		limits:       limits,
	}
}

// Classify scans the transcript once, in order. It never mutates the
// transcript and always succeeds; an empty transcript gives an empty Result.
// A blank topic matches nothing, leaving symptom hints as the only trigger.
func (c *Classifier) Classify(transcript []consultation.Message, topic string) Result {
	topic = strings.ToLower(strings.TrimSpace(topic))

	var symptoms, causes, meds, emergency collector

	for _, msg := range transcript {
		switch msg.Role {
		case consultation.RoleUser:
			lower := strings.ToLower(msg.Content)
			if (topic != "" && strings.Contains(lower, topic)) || c.symptomHints.matches(lower) {
				symptoms.add(msg.Content)
			}

		case consultation.RoleAssistant:
			for sentence := range Sentences(msg.Content) {
				fragment := strings.TrimSpace(sentence)
				if fragment == "" {
					continue
				}
				lower := strings.ToLower(fragment)
				if c.medications.matches(lower) {
					meds.add(fragment)
				}
				if c.causes.matches(lower) {
					causes.add(fragment)
				}
				if c.emergency.matches(lower) {
					emergency.add(fragment)
				}
			}
		}
	}

	return Result{
		Symptoms:       symptoms.first(c.limits.Symptoms),
		Causes:         causes.first(c.limits.Causes),
		Medications:    meds.first(c.limits.Medications),
		EmergencyNotes: emergency.first(c.limits.EmergencyNotes),
	}
}

// collector keeps unique strings in insertion order.
type collector struct {
	items []string
	seen  map[string]struct{}
}

func (c *collector) add(s string) {
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, ok := c.seen[s]; ok {
		return
	}
	c.seen[s] = struct{}{}
	c.items = append(c.items, s)
}

// first returns at most n items; n <= 0 means no cap. The result is never nil.
func (c *collector) first(n int) []string {
	items := c.items
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
