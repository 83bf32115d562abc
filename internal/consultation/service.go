package consultation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AgentClient produces the assistant's next reply for a conversation.
// We define it here to decouple from the specific agent implementation
type AgentClient interface {
	Reply(ctx context.Context, history []Message) (string, error)
}

// STTClient turns recorded audio into text.
type STTClient interface {
	Transcribe(ctx context.Context, audioData []byte) (string, error)
}

// ReportService builds the summary document from a transcript. Reports are
// written under subdir, one per consultation.
type ReportService interface {
	GenerateIn(ctx context.Context, subdir string, transcript []Message, topic string) (string, error)
	SendToDoctor(ctx context.Context, path, note string) error
}

type Service interface {
	CreateConsultation(ctx context.Context, patientID uuid.UUID) (*Consultation, error)
	GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error)
	ProcessUserText(ctx context.Context, consultationID uuid.UUID, text string) (string, error)
	ProcessUserAudio(ctx context.Context, consultationID uuid.UUID, audioData []byte) (Turn, error)
	GenerateReport(ctx context.Context, consultationID uuid.UUID, topic string, sendToDoctor bool) (string, error)
}

// Turn is one user utterance and the assistant's answer to it.
type Turn struct {
	UserText string `json:"text"`
	Response string `json:"response"`
}

type service struct {
	repo      Repository
	aiClient  AgentClient
	sttClient STTClient
	reportSvc ReportService
	log       logrus.FieldLogger

	locks keyedMutex
}

func NewService(repo Repository, ai AgentClient, stt STTClient, report ReportService, log logrus.FieldLogger) Service {
	return &service{
		repo:      repo,
		aiClient:  ai,
		sttClient: stt,
		reportSvc: report,
		log:       log,
	}
}

func (s *service) CreateConsultation(ctx context.Context, patientID uuid.UUID) (*Consultation, error) {
	c := &Consultation{
		ID:        uuid.New(),
		PatientID: patientID,
		History:   []Message{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.log.WithField("consultation_id", c.ID).Info("consultation created")
	return c, nil
}

func (s *service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

// ProcessUserText appends the user's message and the assistant's reply to
// the transcript. Turns on the same consultation are serialized so that the
// history stays in strict chronological order.
func (s *service) ProcessUserText(ctx context.Context, consultationID uuid.UUID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	unlock := s.locks.lock(consultationID)
	defer unlock()

	consultation, err := s.repo.GetByID(ctx, consultationID)
	if err != nil {
		return "", err
	}

	consultation.History = append(consultation.History, Message{
		Role: RoleUser, Content: text, Timestamp: time.Now(),
	})

	response, err := s.aiClient.Reply(ctx, consultation.History)
	if err != nil {
		return "", fmt.Errorf("communicator failed: %w", err)
	}

	consultation.History = append(consultation.History, Message{
		Role: RoleAssistant, Content: response, Timestamp: time.Now(),
	})

	if err := s.repo.Save(ctx, consultation); err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{
		"consultation_id": consultationID,
		"messages":        len(consultation.History),
	}).Debug("turn recorded")
	return response, nil
}

// ProcessUserAudio transcribes the clip and continues as a text turn. A
// failed or empty transcription becomes VoicePlaceholder rather than an error.
func (s *service) ProcessUserAudio(ctx context.Context, consultationID uuid.UUID, audioData []byte) (Turn, error) {
	text, err := s.sttClient.Transcribe(ctx, audioData)
	if err != nil {
		s.log.WithError(err).WithField("consultation_id", consultationID).Warn("speech recognition failed")
		text = VoicePlaceholder
	}
	if strings.TrimSpace(text) == "" {
		text = VoicePlaceholder
	}

	response, err := s.ProcessUserText(ctx, consultationID, text)
	if err != nil {
		return Turn{}, err
	}
	return Turn{UserText: text, Response: response}, nil
}

// GenerateReport renders the summary for the consultation's current
// transcript and optionally forwards it to the doctor.
func (s *service) GenerateReport(ctx context.Context, consultationID uuid.UUID, topic string, sendToDoctor bool) (string, error) {
	consultation, err := s.repo.GetByID(ctx, consultationID)
	if err != nil {
		return "", err
	}

	path, err := s.reportSvc.GenerateIn(ctx, consultationID.String(), consultation.Transcript(), topic)
	if err != nil {
		return "", err
	}

	if sendToDoctor {
		note := fmt.Sprintf("Consultation %s: report on %q", consultationID, strings.TrimSpace(topic))
		if err := s.reportSvc.SendToDoctor(ctx, path, note); err != nil {
			return path, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
	}
	return path, nil
}

// keyedMutex hands out one mutex per consultation.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id uuid.UUID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uuid.UUID]*keyedEntry)
	}
	e, ok := k.locks[id]
	if !ok {
		e = &keyedEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
