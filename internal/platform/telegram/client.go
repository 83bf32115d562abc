package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const defaultAPIURL = "https://api.telegram.org"

type Client struct {
	Token      string
	apiURL     string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token:  token,
		apiURL: defaultAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithAPIURL points the client at another Bot API server.
func (c *Client) WithAPIURL(url string) *Client {
	c.apiURL = url
	return c
}

type sendMessageReq struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
	// Markdown stays off: report notes contain arbitrary patient text.
}

func (c *Client) SendMessage(chatID int64, text string) error {
	reqBody := sendMessageReq{
		ChatID: chatID,
		Text:   text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.methodURL("sendMessage"), "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	return checkResponse(resp)
}

// SendDocument uploads fileData as a document named fileName.
func (c *Client) SendDocument(chatID int64, fileData []byte, fileName string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(fileData); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.methodURL("sendDocument"), writer.FormDataContentType(), body)
	if err != nil {
		return fmt.Errorf("failed to send telegram document: %w", err)
	}
	defer resp.Body.Close()

	return checkResponse(resp)
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.Token, method)
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		// Read body to see the error message from Telegram
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram api returned status: %s, body: %s", resp.Status, string(bodyBytes))
	}
	return nil
}
