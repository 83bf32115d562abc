package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultSTTURL is the Whisper transcription service in the compose network.
const DefaultSTTURL = "http://tts:8000/transcribe"

type WhisperClient struct {
	url        string
	httpClient *http.Client
}

func NewWhisperClient(url string) *WhisperClient {
	if url == "" {
		url = DefaultSTTURL
	}
	return &WhisperClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type sttResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("STT API error: %s - %s", resp.Status, string(respBody))
	}

	var result sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Text, nil
}
