package consultation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Report errors the handler needs to tell apart. They are injected so that
// this package does not depend on the report package.
type ReportErrors struct {
	InvalidInput error
	RenderFault  error
}

type Handler struct {
	svc        Service
	reportErrs ReportErrors
	log        logrus.FieldLogger
}

func NewHandler(svc Service, reportErrs ReportErrors, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, reportErrs: reportErrs, log: log}
}

type ChatRequest struct {
	ConsultationID string `json:"consultation_id"`
	Text           string `json:"text"`
}

type CreateConsultationRequest struct {
	PatientID string `json:"patient_id"`
}

type ReportRequest struct {
	Topic        string `json:"topic"`
	SendToDoctor bool   `json:"send_to_doctor"`
}

func (h *Handler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req CreateConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	// An anonymous patient gets a fresh ID.
	pid := uuid.New()
	if req.PatientID != "" {
		parsed, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid patient ID")
			return
		}
		pid = parsed
	}

	c, err := h.svc.CreateConsultation(r.Context(), pid)
	if err != nil {
		h.log.WithError(err).Error("create consultation")
		writeError(w, http.StatusInternalServerError, "Failed to create consultation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"consultation_id": c.ID.String(),
	})
}

func (h *Handler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid consultation ID")
		return
	}

	c, err := h.svc.GetConsultation(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	id, err := uuid.Parse(req.ConsultationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid consultation ID")
		return
	}

	response, err := h.svc.ProcessUserText(r.Context(), id, req.Text)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"response": response,
	})
}

func (h *Handler) HandleAudioUpload(w http.ResponseWriter, r *http.Request) {
	// Limit upload size (e.g. 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	id, err := uuid.Parse(r.FormValue("consultation_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid consultation ID")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error retrieving audio file")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audio file")
		return
	}

	turn, err := h.svc.ProcessUserAudio(r.Context(), id, buf.Bytes())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// HandleReport renders the consultation summary and sends it back as a PDF
// attachment.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid consultation ID")
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	path, err := h.svc.GenerateReport(r.Context(), id, req.Topic, req.SendToDoctor)
	if err != nil && !errors.Is(err, ErrDeliveryFailed) {
		h.writeServiceError(w, err)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("path", path).Warn("report generated but not delivered")
		w.Header().Set("X-Report-Delivery", "failed")
	}

	f, err := os.Open(path)
	if err != nil {
		h.log.WithError(err).Error("open generated report")
		writeError(w, http.StatusInternalServerError, "Failed to read report")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	if _, err := io.Copy(w, f); err != nil {
		h.log.WithError(err).Warn("stream report")
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case h.reportErrs.InvalidInput != nil && errors.Is(err, h.reportErrs.InvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case h.reportErrs.RenderFault != nil && errors.Is(err, h.reportErrs.RenderFault):
		h.log.WithError(err).Error("report rendering failed")
		writeError(w, http.StatusInternalServerError, "Failed to render report")
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Processing failed: "+err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/consultation", h.CreateConsultation)
	r.Get("/consultation/{id}", h.GetConsultation)
	r.Post("/consultation/chat", h.HandleChat)
	r.Post("/consultation/audio", h.HandleAudioUpload)
	r.Post("/consultation/{id}/report", h.HandleReport)
}
