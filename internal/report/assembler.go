package report

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"health-report-agent/internal/extraction"
)

var (
	// ErrInvalidInput is returned for a blank topic, before any rendering.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRenderFault means no document was produced.
	ErrRenderFault = errors.New("render fault")
)

// TopicRequiredMessage is shown to the user when the topic is blank.
const TopicRequiredMessage = "Please write the disease name."

const (
	DefaultTitle      = "Patient Medical Summary"
	DefaultDisclaimer = "Disclaimer: I am not a medical professional. This is general information only."
)

const (
	SectionSymptoms    = "Symptoms Reported"
	SectionCauses      = "Possible Causes"
	SectionMedications = "Possible OTC Medications"
	SectionEmergency   = "Emergency Guidance"
)

const (
	PlaceholderSymptoms    = "No symptoms detected."
	PlaceholderCauses      = "No cause-related replies found."
	PlaceholderMedications = "No OTC medications found."
	PlaceholderEmergency   = "No emergency advice detected."
)

type Section struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// Document is the renderer-ready layout of one report.
type Document struct {
	Topic      string    `json:"topic"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle"`
	Sections   []Section `json:"sections"`
	Disclaimer string    `json:"disclaimer"`
}

type AssembleOptions struct {
	Title      string
	Disclaimer string
}

func (o AssembleOptions) withDefaults() AssembleOptions {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Disclaimer == "" {
		o.Disclaimer = DefaultDisclaimer
	}
	return o
}

// ValidateTopic trims the topic and rejects it when nothing is left.
func ValidateTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, TopicRequiredMessage)
	}
	return topic, nil
}

// Assemble lays the extraction result out as the four fixed sections. Empty
// categories get a single placeholder bullet.
func Assemble(res extraction.Result, topic string, opts AssembleOptions) (Document, error) {
	topic, err := ValidateTopic(topic)
	if err != nil {
		return Document{}, err
	}
	opts = opts.withDefaults()

	return Document{
		Topic:    topic,
		Title:    opts.Title,
		Subtitle: "Disease / Concern: " + titleCase(topic),
		Sections: []Section{
			newSection(SectionSymptoms, res.Symptoms, PlaceholderSymptoms),
			newSection(SectionCauses, res.Causes, PlaceholderCauses),
			newSection(SectionMedications, res.Medications, PlaceholderMedications),
			newSection(SectionEmergency, res.EmergencyNotes, PlaceholderEmergency),
		},
		Disclaimer: opts.Disclaimer,
	}, nil
}

func newSection(title string, items []string, placeholder string) Section {
	if len(items) == 0 {
		return Section{Title: title, Bullets: []string{placeholder}}
	}
	bullets := make([]string, len(items))
	copy(bullets, items)
	return Section{Title: title, Bullets: bullets}
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
