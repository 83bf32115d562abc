package consultation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeAgent struct {
	mu    sync.Mutex
	reply string
	err   error
	seen  [][]Message
}

func (f *fakeAgent) Reply(ctx context.Context, history []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, append([]Message(nil), history...))
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return fmt.Sprintf("reply %d", len(f.seen)), nil
}

type fakeSTT struct {
	text string
	err  error
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.text, f.err
}

type fakeReports struct {
	subdir     string
	transcript []Message
	topic      string
	path       string
	err        error
	sendErr    error
	sentNote   string
	sentPath   string
}

func (f *fakeReports) GenerateIn(ctx context.Context, subdir string, transcript []Message, topic string) (string, error) {
	f.subdir = subdir
	f.transcript = transcript
	f.topic = topic
	return f.path, f.err
}

func (f *fakeReports) SendToDoctor(ctx context.Context, path, note string) error {
	f.sentPath = path
	f.sentNote = note
	return f.sendErr
}

type ServiceTestSuite struct {
	suite.Suite
	repo    Repository
	agent   *fakeAgent
	stt     *fakeSTT
	reports *fakeReports
	svc     Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	log, _ := test.NewNullLogger()
	s.repo = NewMemoryRepository()
	s.agent = &fakeAgent{}
	s.stt = &fakeSTT{}
	s.reports = &fakeReports{path: "/tmp/Report_flu.pdf"}
	s.svc = NewService(s.repo, s.agent, s.stt, s.reports, log)
	s.ctx = context.Background()
}

func (s *ServiceTestSuite) newConsultation() uuid.UUID {
	c, err := s.svc.CreateConsultation(s.ctx, uuid.New())
	s.Require().NoError(err)
	return c.ID
}

func (s *ServiceTestSuite) TestCreateConsultation() {
	pid := uuid.New()
	c, err := s.svc.CreateConsultation(s.ctx, pid)
	s.Require().NoError(err)

	stored, err := s.svc.GetConsultation(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(pid, stored.PatientID)
	s.Empty(stored.History)
}

func (s *ServiceTestSuite) TestProcessUserTextAppendsTurn() {
	id := s.newConsultation()

	resp, err := s.svc.ProcessUserText(s.ctx, id, "I have a fever")
	s.Require().NoError(err)
	s.Equal("reply 1", resp)

	c, err := s.svc.GetConsultation(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(c.History, 2)
	s.Equal(RoleUser, c.History[0].Role)
	s.Equal("I have a fever", c.History[0].Content)
	s.Equal(RoleAssistant, c.History[1].Role)
	s.Equal("reply 1", c.History[1].Content)

	s.Require().Len(s.agent.seen, 1)
	s.Len(s.agent.seen[0], 1, "agent sees history ending with the new user message")
}

func (s *ServiceTestSuite) TestProcessUserTextRejectsBlank() {
	id := s.newConsultation()
	_, err := s.svc.ProcessUserText(s.ctx, id, "  \n")
	s.ErrorIs(err, ErrEmptyMessage)
	s.Empty(s.agent.seen)
}

func (s *ServiceTestSuite) TestProcessUserTextUnknownConsultation() {
	_, err := s.svc.ProcessUserText(s.ctx, uuid.New(), "hello")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestProcessUserTextAgentFailureKeepsHistory() {
	id := s.newConsultation()
	boom := errors.New("model unavailable")
	s.agent.err = boom

	_, err := s.svc.ProcessUserText(s.ctx, id, "hello")
	s.ErrorIs(err, boom)

	c, err := s.svc.GetConsultation(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(c.History)
}

func (s *ServiceTestSuite) TestProcessUserAudio() {
	id := s.newConsultation()
	s.stt.text = "my head hurts"

	turn, err := s.svc.ProcessUserAudio(s.ctx, id, []byte("RIFF"))
	s.Require().NoError(err)
	s.Equal("my head hurts", turn.UserText)
	s.Equal("reply 1", turn.Response)
}

func (s *ServiceTestSuite) TestProcessUserAudioFallsBackToPlaceholder() {
	for _, stt := range []*fakeSTT{{err: errors.New("no speech")}, {text: "   "}} {
		id := s.newConsultation()
		*s.stt = *stt

		turn, err := s.svc.ProcessUserAudio(s.ctx, id, []byte("RIFF"))
		s.Require().NoError(err)
		s.Equal(VoicePlaceholder, turn.UserText)

		c, err := s.svc.GetConsultation(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(VoicePlaceholder, c.History[0].Content)
		s.Equal(RoleUser, c.History[0].Role)
	}
}

func (s *ServiceTestSuite) TestGenerateReportPassesTranscriptSnapshot() {
	id := s.newConsultation()
	_, err := s.svc.ProcessUserText(s.ctx, id, "fever")
	s.Require().NoError(err)

	path, err := s.svc.GenerateReport(s.ctx, id, "flu", false)
	s.Require().NoError(err)
	s.Equal("/tmp/Report_flu.pdf", path)
	s.Equal("flu", s.reports.topic)
	s.Equal(id.String(), s.reports.subdir)
	s.Len(s.reports.transcript, 2)
	s.Empty(s.reports.sentPath)
}

func (s *ServiceTestSuite) TestGenerateReportPropagatesErrors() {
	id := s.newConsultation()
	boom := errors.New("render fault")
	s.reports.err = boom

	path, err := s.svc.GenerateReport(s.ctx, id, "flu", true)
	s.ErrorIs(err, boom)
	s.Empty(path)
	s.Empty(s.reports.sentPath)
}

func (s *ServiceTestSuite) TestGenerateReportSendsToDoctor() {
	id := s.newConsultation()

	path, err := s.svc.GenerateReport(s.ctx, id, " flu ", true)
	s.Require().NoError(err)
	s.Equal(path, s.reports.sentPath)
	s.Contains(s.reports.sentNote, `"flu"`)
	s.Contains(s.reports.sentNote, id.String())
}

func (s *ServiceTestSuite) TestGenerateReportDeliveryFailure() {
	id := s.newConsultation()
	s.reports.sendErr = errors.New("telegram down")

	path, err := s.svc.GenerateReport(s.ctx, id, "flu", true)
	s.ErrorIs(err, ErrDeliveryFailed)
	s.Equal("/tmp/Report_flu.pdf", path)
}

func TestConcurrentTurnsKeepOrder(t *testing.T) {
	log, _ := test.NewNullLogger()
	agent := &fakeAgent{reply: "ok"}
	svc := NewService(NewMemoryRepository(), agent, &fakeSTT{}, &fakeReports{}, log)
	ctx := context.Background()

	c, err := svc.CreateConsultation(ctx, uuid.New())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ProcessUserText(ctx, c.ID, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.GetConsultation(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 40)
	for i := 0; i < len(got.History); i += 2 {
		assert.Equal(t, RoleUser, got.History[i].Role)
		assert.Equal(t, RoleAssistant, got.History[i+1].Role)
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	c := &Consultation{ID: uuid.New(), History: []Message{{Role: RoleUser, Content: "a"}}}
	require.NoError(t, repo.Save(ctx, c))

	c.History[0].Content = "mutated"
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.History[0].Content)
	assert.False(t, got.CreatedAt.IsZero())

	got.History = append(got.History, Message{Role: RoleAssistant, Content: "b"})
	again, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, again.History, 1)
}
