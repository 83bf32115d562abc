package extraction

import "strings"

// Keywords holds the four independent keyword sets the classifier matches
// against. Matching is substring based and case-insensitive.
type Keywords struct {
	SymptomHints []string `toml:"symptom_hints"`
	Medications  []string `toml:"medications"`
	Causes       []string `toml:"causes"`
	Emergency    []string `toml:"emergency"`
}

// Limits caps the number of items kept per category.
type Limits struct {
	Symptoms       int `toml:"symptoms"`
	Causes         int `toml:"causes"`
	Medications    int `toml:"medications"`
	EmergencyNotes int `toml:"emergency_notes"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		SymptomHints: []string{
			"pain", "ache", "fever", "cough", "sore", "nausea", "vomit", "diarrhea",
			"headache", "dizzy", "rash", "itch", "swelling", "fatigue",
		},
		Medications: []string{
			"paracetamol", "acetaminophen", "ibuprofen", "loratadine",
			"cetirizine", "antacid", "ors", "oral rehydration", "saline spray",
		},
		Causes:    []string{"possible", "likely", "may be", "could be"},
		Emergency: []string{"emergency", "urgent", "seek care", "call doctor"},
	}
}

func DefaultLimits() Limits {
	return Limits{
		Symptoms:       20,
		Causes:         10,
		Medications:    10,
		EmergencyNotes: 10,
	}
}

// keywordSet is a lowercased, blank-free copy of a configured list.
type keywordSet []string

func newKeywordSet(words []string) keywordSet {
	set := make(keywordSet, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set = append(set, w)
	}
	return set
}

// matches expects lower to be lowercased already.
func (s keywordSet) matches(lower string) bool {
	for _, w := range s {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
