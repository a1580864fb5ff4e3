package zapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	delayMessage = 2
	delayTyping  = 3

	defaultLinkImage = "https://zoom.us/favicon.ico"
	defaultLinkTitle = "Reunião Zoom"
)

type Client struct {
	baseURL     string
	clientToken string
	http        *http.Client
	log         *slog.Logger
}

// NewClient recebe a raiz da instância (antes de /send-text). baseURL vazia
// deixa o client desligado.
func NewClient(baseURL, clientToken string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientToken: clientToken,
		http:        &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

func (c *Client) SendText(ctx context.Context, phone, message string) error {
	if !c.Configured() {
		return &SendError{Cause: CauseNotConfigured}
	}
	payload := textPayload{
		Phone:        Digits(phone),
		Message:      message,
		DelayMessage: delayMessage,
		DelayTyping:  delayTyping,
	}
	return c.post(ctx, "send-text", payload)
}

func (c *Client) SendLink(ctx context.Context, in SendLinkInput) error {
	if !c.Configured() {
		return &SendError{Cause: CauseNotConfigured}
	}
	payload := linkPayload{
		Phone:           Digits(in.Phone),
		Message:         in.Message,
		Image:           in.Image,
		LinkURL:         in.LinkURL,
		Title:           in.Title,
		LinkDescription: in.LinkDescription,
		LinkType:        "LARGE",
		DelayMessage:    delayMessage,
		DelayTyping:     delayTyping,
	}
	if payload.Image == "" {
		payload.Image = defaultLinkImage
	}
	if payload.Title == "" {
		payload.Title = defaultLinkTitle
	}
	return c.post(ctx, "send-link", payload)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &SendError{Cause: CauseInvalidResponse, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &SendError{Cause: CauseTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.clientToken != "" {
		req.Header.Set("Client-Token", c.clientToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &SendError{Cause: CauseTransport, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusMethodNotAllowed:
		return &SendError{Cause: CauseMethodNotAllowed, Status: resp.StatusCode, Body: string(respBody)}
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return &SendError{Cause: CauseUnsupportedMediaType, Status: resp.StatusCode, Body: string(respBody)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &SendError{Cause: CauseRejected, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out SendResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &out); err != nil {
			return &SendError{Cause: CauseInvalidResponse, Status: resp.StatusCode, Body: string(respBody), Err: err}
		}
	}

	c.log.Info("mensagem enviada via z-api", "endpoint", endpoint, "message_id", out.MessageID)
	return nil
}
