package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	gogpt "github.com/sashabaranov/go-openai"
)

var ErrEmptyCompletion = errors.New("openai: resposta sem conteúdo")

// CompletionRequest é o que o domínio pede ao modelo. Model vazio usa o padrão do client.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type Client struct {
	api   *gogpt.Client
	model string
}

// NewClient devolve nil quando não há chave: quem chama trata nil como
// "geração indisponível".
func NewClient(apiKey, baseURL, model string) *Client {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	cfg := gogpt.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	return &Client{api: gogpt.NewClientWithConfig(cfg), model: model}
}

// Complete devolve o conteúdo da primeira escolha, sem espaços nas pontas.
func (c *Client) Complete(ctx context.Context, in CompletionRequest) (string, error) {
	if c == nil {
		return "", errors.New("openai não configurado")
	}

	model := in.Model
	if model == "" {
		model = c.model
	}
	messages := make([]gogpt.ChatCompletionMessage, 0, 2)
	if in.System != "" {
		messages = append(messages, gogpt.ChatCompletionMessage{Role: gogpt.ChatMessageRoleSystem, Content: in.System})
	}
	messages = append(messages, gogpt.ChatCompletionMessage{Role: gogpt.ChatMessageRoleUser, Content: in.Prompt})

	resp, err := c.api.CreateChatCompletion(ctx, gogpt.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature(in.Temperature),
		MaxTokens:   in.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// temperature: o SDK omite zero no payload, então zero vira o menor float32
// positivo para a API não cair no default 1.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
