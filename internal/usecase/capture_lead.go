package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/queue"
)

const (
	MsgMissingFormFields = "Nome ou WhatsApp faltando."
	MsgLeadCaptured      = "Dados enviados para o Notion com sucesso."
)

type CaptureLeadInput struct {
	Name         string `json:"nome" validate:"required,max=200"`
	Email        string `json:"email" validate:"omitempty,email"`
	WhatsApp     string `json:"whatsapp" validate:"required,max=40"`
	Profession   string `json:"profissao"`
	Age          string `json:"idade"`
	Referral     string `json:"indicacao"`
	Motivation   string `json:"motivo"`
	History      string `json:"historico"`
	Availability string `json:"disponibilidade"`
}

type CaptureLeadOutput struct {
	Message  string      `json:"message"`
	RecordID string      `json:"-"`
	Tier     entity.Tier `json:"-"`
}

type PhoneNormalizer interface {
	Normalize(raw string) string
}

type CaptureLeadUseCase struct {
	Validator    *Validator
	RequireEmail bool
	Phones       PhoneNormalizer
	Classifier   *LeadClassifier
	Upserter     *RecordUpserter
	Notifier     *Notifier
	Publisher    EventPublisher
	Log          *slog.Logger
}

func NewCaptureLeadUseCase(
	validator *Validator,
	requireEmail bool,
	phones PhoneNormalizer,
	classifier *LeadClassifier,
	upserter *RecordUpserter,
	notifier *Notifier,
	publisher EventPublisher,
	log *slog.Logger,
) *CaptureLeadUseCase {
	if validator == nil {
		validator = NewValidator()
	}
	if log == nil {
		log = slog.Default()
	}
	return &CaptureLeadUseCase{
		Validator:    validator,
		RequireEmail: requireEmail,
		Phones:       phones,
		Classifier:   classifier,
		Upserter:     upserter,
		Notifier:     notifier,
		Publisher:    publisher,
		Log:          log,
	}
}

func (uc *CaptureLeadUseCase) Execute(ctx context.Context, in CaptureLeadInput) (CaptureLeadOutput, error) {
	if errs := uc.Validator.ValidateCaptureLeadInput(in, uc.RequireEmail); len(errs) > 0 {
		if missingRequired(errs) {
			return CaptureLeadOutput{}, ValidationFailure("MISSING_FIELDS", MsgMissingFormFields)
		}
		return CaptureLeadOutput{}, ValidationFailure("INVALID_FIELDS", errs[0].Error())
	}

	phone := strings.TrimSpace(in.WhatsApp)
	if uc.Phones != nil {
		if normalized := uc.Phones.Normalize(phone); normalized != "" {
			phone = normalized
		}
	}

	lead := entity.Lead{
		ID:           phone,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        phone,
		Profession:   in.Profession,
		Age:          in.Age,
		Referral:     in.Referral,
		Motivation:   in.Motivation,
		History:      in.History,
		Availability: in.Availability,
	}

	tier := uc.Classifier.Classify(ctx, lead.Referral, lead.Motivation)

	extra := extraFields(lead)
	extra[PropTier] = tier.String()

	// Reenvio não rebaixa o status de quem já agendou, mas refaz o nível.
	ref, err := uc.Upserter.Upsert(ctx, UpsertInput{
		Identifier: lead.ID,
		Phone:      phone,
		Name:       lead.Name,
		Email:      lead.Email,
		Status:     entity.StatusCaptured,
		KeepStatus: true,
		Extra:      extra,
		Refresh:    []string{PropTier, PropMotivation, PropReferral},
	})
	if err != nil {
		return CaptureLeadOutput{}, err
	}

	if tier == entity.TierHigh {
		if err := uc.Notifier.NotifyHighTier(ctx, lead); err != nil {
			uc.Log.Warn("falha ao alertar vendas sobre lead alto", "identifier", lead.ID, "error", err)
		}
	}

	if uc.Publisher != nil {
		err := uc.Publisher.PublishLeadEvent(ctx, queue.LeadEvent{
			Source:     "lead_form",
			Identifier: lead.ID,
			RecordID:   ref.ID,
			Name:       lead.Name,
			Email:      lead.Email,
			Phone:      lead.Phone,
			Tier:       tier.String(),
		})
		if err != nil {
			uc.Log.Warn("falha ao publicar evento do lead", "identifier", lead.ID, "error", err)
		}
	}

	uc.Log.Info("lead do formulário registrado", "identifier", lead.ID, "tier", tier, "created", ref.Created)
	return CaptureLeadOutput{Message: MsgLeadCaptured, RecordID: ref.ID, Tier: tier}, nil
}
