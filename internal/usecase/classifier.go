package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/openai"
)

var highIntentKeywords = []string{"perdeu o emprego", "oportunidade de emprego", "viagem"}

const classifyPrompt = "Você é um agente de vendas experiente. " +
	"Classifique o lead como Alto, Médio ou Baixo seguindo as regras: " +
	"Alto quando mencionou perda de emprego, oportunidade ou viagem; " +
	"Alto também se houve indicação + perda de emprego; " +
	"Médio quando quer apenas manter o inglês; " +
	"Baixo quando quer apenas aprimorar sem objetivo claro. " +
	"Responda apenas com uma palavra: Alto, Médio ou Baixo.\n" +
	"Indicação: %s\nMotivo: %s"

// ClassifyBasic aplica as regras fixas. Sempre devolve um Tier válido.
func ClassifyBasic(referral, motivation string) entity.Tier {
	m := strings.ToLower(motivation)

	for _, kw := range highIntentKeywords {
		if strings.Contains(m, kw) {
			return entity.TierHigh
		}
	}

	if strings.TrimSpace(referral) != "" && strings.Contains(m, "perdeu") && strings.Contains(m, "emprego") {
		return entity.TierHigh
	}

	if strings.Contains(m, "aprimorar") {
		if strings.Contains(m, "manter") {
			return entity.TierMedium
		}
		return entity.TierLow
	}

	return entity.TierLow
}

type LeadClassifier struct {
	Generator TextGenerator
	Timeout   time.Duration
	Log       *slog.Logger
	Metrics   MetricsRecorder
}

func NewLeadClassifier(gen TextGenerator, timeout time.Duration, log *slog.Logger, metrics MetricsRecorder) *LeadClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &LeadClassifier{Generator: gen, Timeout: timeout, Log: log, Metrics: metricsOrNoop(metrics)}
}

// Classify tenta o modelo primeiro; qualquer falha cai nas regras fixas sem erro.
func (c *LeadClassifier) Classify(ctx context.Context, referral, motivation string) entity.Tier {
	if c.Generator != nil {
		tier, err := c.classifyWithModel(ctx, referral, motivation)
		if err == nil {
			c.Metrics.LeadClassified(tier, "model")
			return tier
		}
		c.Log.Warn("classificação via modelo falhou, usando regras", "error", err)
	}

	tier := ClassifyBasic(referral, motivation)
	c.Metrics.LeadClassified(tier, "rules")
	return tier
}

func (c *LeadClassifier) classifyWithModel(ctx context.Context, referral, motivation string) (entity.Tier, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	out, err := c.Generator.Complete(ctx, openai.CompletionRequest{
		Prompt:      fmt.Sprintf(classifyPrompt, referral, motivation),
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		return "", GenerationFailure(err)
	}

	tier, ok := entity.ParseTier(out)
	if !ok {
		return "", GenerationFailure(fmt.Errorf("rótulo inválido: %q", out))
	}
	return tier, nil
}
