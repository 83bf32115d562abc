package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"health-report-agent/internal/consultation"
	"health-report-agent/internal/extraction"
)

// ErrDeliveryDisabled is returned by SendToDoctor when no doctor chat is set.
var ErrDeliveryDisabled = errors.New("doctor delivery is not configured")

type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

type Classifier interface {
	Classify(transcript []consultation.Message, topic string) extraction.Result
}

type Service struct {
	classifier   Classifier
	renderer     *Renderer
	opts         AssembleOptions
	tgClient     TelegramClient
	doctorChatID int64
	log          logrus.FieldLogger
}

func NewService(classifier Classifier, renderer *Renderer, opts AssembleOptions, tg TelegramClient, doctorChatID int64, log logrus.FieldLogger) *Service {
	return &Service{
		classifier:   classifier,
		renderer:     renderer,
		opts:         opts,
		tgClient:     tg,
		doctorChatID: doctorChatID,
		log:          log,
	}
}

// Generate runs classify, assemble and render over a transcript snapshot and
// returns the written file's path. A blank topic fails with ErrInvalidInput
// before the transcript is even looked at.
func (s *Service) Generate(ctx context.Context, transcript []consultation.Message, topic string) (string, error) {
	return s.GenerateIn(ctx, "", transcript, topic)
}

// GenerateIn is Generate with the file written under subdir of the output
// directory, so reports of different consultations never overwrite each
// other.
func (s *Service) GenerateIn(ctx context.Context, subdir string, transcript []consultation.Message, topic string) (string, error) {
	topic, err := ValidateTopic(topic)
	if err != nil {
		return "", err
	}
	log := s.log.WithField("topic", topic)

	res := s.classifier.Classify(transcript, topic)
	log.WithFields(logrus.Fields{
		"messages":    len(transcript),
		"symptoms":    len(res.Symptoms),
		"causes":      len(res.Causes),
		"medications": len(res.Medications),
		"emergency":   len(res.EmergencyNotes),
	}).Debug("transcript classified")

	doc, err := Assemble(res, topic, s.opts)
	if err != nil {
		return "", err
	}

	path, err := s.renderer.RenderIn(subdir, doc)
	if err != nil {
		log.WithError(err).Error("report rendering failed")
		return "", err
	}
	return path, nil
}

// SendToDoctor uploads a generated report to the doctor's Telegram chat,
// preceded by note when it is not empty.
func (s *Service) SendToDoctor(ctx context.Context, path, note string) error {
	if s.tgClient == nil || s.doctorChatID == 0 {
		return ErrDeliveryDisabled
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{"chat_id": s.doctorChatID, "path": path})
	log.Info("sending report to doctor")
	if note != "" {
		if err := s.tgClient.SendMessage(s.doctorChatID, note); err != nil {
			log.WithError(err).Error("telegram note failed")
			return fmt.Errorf("send note: %w", err)
		}
	}
	if err := s.tgClient.SendDocument(s.doctorChatID, data, filepath.Base(path)); err != nil {
		log.WithError(err).Error("telegram delivery failed")
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}
