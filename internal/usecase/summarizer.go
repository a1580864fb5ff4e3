package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/openai"
)

const salesSystemPrompt = "Você é um analista de vendas especializado em escolas de inglês."

const salesPrompt = `Você é um assistente de vendas especializado em escolas de inglês.

Analise os dados do lead e crie um resumo estratégico para a equipe de vendas:

Dados do lead:
- Nome: %s
- Profissão: %s
- Objetivo: %s
- Histórico Inglês: %s
- Real Motivação: %s
- Idade: %s
- Indicação: %s

Crie uma análise para a equipe de vendas, incluindo:
1. Principais pontos de atenção sobre o perfil
2. Possíveis objeções que podem surgir
3. Sugestões de abordagem baseadas no perfil
4. Use emojis para destacar pontos importantes
5. Use formatação do WhatsApp (*negrito*)
6. Mantenha a análise objetiva e estratégica
7. Destaque informações relevantes para conversão
8. Sugira pacotes ou abordagens específicas para este perfil`

const highTierPrompt = "Crie um texto curto para o time de vendas explicando por que o lead " +
	"a seguir é de alta qualificação, citando os pontos principais.\n%s"

const notInformed = "Não informado"

// SalesSummarizer gera os textos para o time de vendas. Nunca falha: sem
// modelo ou com erro, devolve o texto fixo.
type SalesSummarizer struct {
	Generator TextGenerator
	Log       *slog.Logger
}

func NewSalesSummarizer(gen TextGenerator, log *slog.Logger) *SalesSummarizer {
	if log == nil {
		log = slog.Default()
	}
	return &SalesSummarizer{Generator: gen, Log: log}
}

func (s *SalesSummarizer) Summarize(ctx context.Context, lead entity.Lead) string {
	if s.Generator != nil {
		out, err := s.Generator.Complete(ctx, openai.CompletionRequest{
			System: salesSystemPrompt,
			Prompt: fmt.Sprintf(salesPrompt,
				lead.Name,
				orDefault(lead.Profession),
				orDefault(lead.Objective),
				orDefault(lead.History),
				orDefault(lead.Motivation),
				orDefault(lead.Age),
				orDefault(lead.Referral),
			),
			Temperature: 0.7,
			MaxTokens:   500,
		})
		if err == nil {
			return out
		}
		s.Log.Warn("resumo de vendas indisponível, usando texto padrão", "error", GenerationFailure(err))
	}

	return fmt.Sprintf("🎯 *Novo Lead Agendado*\n\n"+
		"👤 Nome: %s\n"+
		"💼 Profissão: %s\n"+
		"🎯 Objetivo: %s\n"+
		"⚠️ Análise do ChatGPT indisponível no momento.",
		lead.Name, orDefault(lead.Profession), orDefault(lead.Objective))
}

// HighTierAlert explica por que o lead foi classificado como Alto.
func (s *SalesSummarizer) HighTierAlert(ctx context.Context, lead entity.Lead) string {
	fields := leadFields(lead)

	if s.Generator != nil {
		out, err := s.Generator.Complete(ctx, openai.CompletionRequest{
			Prompt:      fmt.Sprintf(highTierPrompt, strings.Join(fields, "\n")),
			Temperature: 0.7,
			MaxTokens:   120,
		})
		if err == nil {
			return out
		}
		s.Log.Warn("texto de lead alto indisponível, usando texto padrão", "error", GenerationFailure(err))
	}

	return strings.Join(append([]string{"Lead com alta chance de fechar negócio!"}, fields...), "\n")
}

func leadFields(lead entity.Lead) []string {
	pairs := []struct{ k, v string }{
		{"Nome", lead.Name},
		{"Email", lead.Email},
		{"Whatsapp", lead.Phone},
		{"Profissão", lead.Profession},
		{"Idade", lead.Age},
		{"Indicação", lead.Referral},
		{"Motivo", lead.Motivation},
		{"Histórico", lead.History},
		{"Disponibilidade", lead.Availability},
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.v) != "" {
			out = append(out, p.k+": "+p.v)
		}
	}
	return out
}

func orDefault(v string) string {
	if strings.TrimSpace(v) == "" {
		return notInformed
	}
	return v
}
