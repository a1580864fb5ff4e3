package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/notion"
)

// Propriedades do database de leads.
const (
	PropName          = "Cliente"
	PropEmail         = "Email"
	PropStatus        = "Status"
	PropScheduledDate = "Data Agendada pelo Lead"
	PropPhone         = "Telefone"
	PropProfession    = "Profissão"
	PropObjective     = "Objetivo"
	PropHistory       = "Histórico Inglês"
	PropMotivation    = "Real Motivação"
	PropAge           = "Idade"
	PropReferral      = "Indicação"
	PropAvailability  = "Disponibilidade Horário"
	PropTier          = "Nível de Qualificação"
)

// ScheduledDateLayout é o formato gravado em PropScheduledDate (dia-mês-ano, 24h).
const ScheduledDateLayout = "02-01-2006 às 15:04"

// optionalProps só entram na criação se o database declarar a coluna.
var optionalProps = []string{
	PropPhone,
	PropProfession,
	PropObjective,
	PropHistory,
	PropMotivation,
	PropAge,
	PropReferral,
	PropAvailability,
	PropTier,
}

type UpsertInput struct {
	Identifier string
	// Phone localiza o registro pelo telefone quando o identificador não existe.
	Phone string
	// Adopt faz o registro achado pelo telefone passar a usar Identifier.
	Adopt     bool
	Name      string
	StartTime time.Time
	Email     string
	// Status vazio vira entity.StatusScheduled.
	Status string
	// KeepStatus preserva o status de um registro existente.
	KeepStatus bool
	// Extra é indexado pelo nome da propriedade no Notion.
	Extra map[string]string
	// Refresh lista as chaves de Extra regravadas também na atualização.
	Refresh []string
}

type RecordUpserter struct {
	Store      RecordStore
	IDProperty string
	Location   *time.Location
	Log        *slog.Logger
	Metrics    MetricsRecorder
}

func NewRecordUpserter(store RecordStore, idProperty string, loc *time.Location, log *slog.Logger, metrics MetricsRecorder) *RecordUpserter {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &RecordUpserter{
		Store:      store,
		IDProperty: idProperty,
		Location:   loc,
		Log:        log,
		Metrics:    metricsOrNoop(metrics),
	}
}

// FormatScheduledDate formata t no fuso de exibição. Zero vira "".
func (u *RecordUpserter) FormatScheduledDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(u.Location).Format(ScheduledDateLayout)
}

// Upsert atualiza a página do identificador ou cria uma nova.
func (u *RecordUpserter) Upsert(ctx context.Context, in UpsertInput) (entity.RecordRef, error) {
	if strings.TrimSpace(in.Identifier) == "" {
		return entity.RecordRef{}, ValidationFailure("MISSING_IDENTIFIER", "identificador do lead ausente")
	}
	status := in.Status
	if status == "" {
		status = entity.StatusScheduled
	}

	existing, err := u.find(ctx, u.IDProperty, in.Identifier)
	if err != nil {
		return entity.RecordRef{}, err
	}
	byPhone := false
	if existing == nil && in.Phone != "" {
		if existing, err = u.findByPhone(ctx, in.Identifier, in.Phone); err != nil {
			return entity.RecordRef{}, err
		}
		// Só um registro do formulário é adotado; outro agendamento do mesmo telefone fica intacto.
		if existing != nil && in.Adopt && existing.PlainText(PropStatus) != entity.StatusCaptured {
			existing = nil
		}
		byPhone = existing != nil
	}

	if existing != nil {
		props := notion.Properties{}
		if !in.KeepStatus {
			props[PropStatus] = notion.Select(status)
		}
		if in.Email != "" {
			props[PropEmail] = notion.Email(in.Email)
		}
		if !in.StartTime.IsZero() {
			props[PropScheduledDate] = notion.Text(u.FormatScheduledDate(in.StartTime))
		}
		if byPhone && in.Adopt {
			props[u.IDProperty] = notion.Text(in.Identifier)
		}
		u.refresh(ctx, props, in)

		if _, err := u.Store.Update(ctx, existing.ID, props); err != nil {
			u.Metrics.IntegrationError("notion")
			return entity.RecordRef{}, UpstreamFailure("RECORD_UPDATE", "falha ao atualizar registro no Notion", err)
		}
		u.Log.Info("registro atualizado no notion", "identifier", in.Identifier, "page_id", existing.ID, "by_phone", byPhone)
		return entity.RecordRef{ID: existing.ID, Created: false}, nil
	}

	schema, err := u.Store.DatabaseSchema(ctx)
	if err != nil {
		u.Metrics.IntegrationError("notion")
		return entity.RecordRef{}, UpstreamFailure("SCHEMA_UNAVAILABLE", "não foi possível obter as propriedades do database", err)
	}

	props := notion.Properties{
		PropName:          notion.Title(in.Name),
		PropEmail:         notion.Email(in.Email),
		PropStatus:        notion.Select(status),
		PropScheduledDate: notion.Text(u.FormatScheduledDate(in.StartTime)),
		u.IDProperty:      notion.Text(in.Identifier),
	}
	for _, name := range u.optionalNames(in.Extra) {
		def, declared := schema[name]
		if !declared {
			continue
		}
		if v, ok := propertyValue(def.Type, in.Extra[name]); ok {
			props[name] = v
		}
	}

	page, err := u.Store.Create(ctx, props)
	if err != nil {
		u.Metrics.IntegrationError("notion")
		return entity.RecordRef{}, UpstreamFailure("RECORD_CREATE", "falha ao criar registro no Notion", err)
	}

	u.Log.Info("registro criado no notion", "identifier", in.Identifier, "page_id", page.ID)
	return entity.RecordRef{ID: page.ID, Created: true}, nil
}

// MarkCancelled muda o status para Cancelado. Devolve false se não há registro.
func (u *RecordUpserter) MarkCancelled(ctx context.Context, identifier string) (bool, error) {
	existing, err := u.find(ctx, u.IDProperty, identifier)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	props := notion.Properties{PropStatus: notion.Select(entity.StatusCancelled)}
	if _, err := u.Store.Update(ctx, existing.ID, props); err != nil {
		u.Metrics.IntegrationError("notion")
		return false, UpstreamFailure("RECORD_UPDATE", "falha ao cancelar registro no Notion", err)
	}
	return true, nil
}

// LeadFromPage lê de volta os campos do lead gravados na página.
func (u *RecordUpserter) LeadFromPage(page *notion.Page) entity.Lead {
	if page == nil {
		return entity.Lead{}
	}
	return entity.Lead{
		ID:           page.PlainText(u.IDProperty),
		Name:         page.PlainText(PropName),
		Email:        page.PlainText(PropEmail),
		Phone:        page.PlainText(PropPhone),
		Profession:   page.PlainText(PropProfession),
		Objective:    page.PlainText(PropObjective),
		History:      page.PlainText(PropHistory),
		Motivation:   page.PlainText(PropMotivation),
		Age:          page.PlainText(PropAge),
		Referral:     page.PlainText(PropReferral),
		Availability: page.PlainText(PropAvailability),
	}
}

func (u *RecordUpserter) find(ctx context.Context, property, value string) (*notion.Page, error) {
	pages, err := u.Store.Query(ctx, property, value)
	if err != nil {
		u.Metrics.IntegrationError("notion")
		return nil, UpstreamFailure("RECORD_LOOKUP", "falha ao consultar o Notion", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}
	if len(pages) > 1 {
		u.Log.Warn("mais de um registro para o mesmo valor", "property", property, "value", value, "count", len(pages))
	}
	return &pages[0], nil
}

// findByPhone cobre registros do formulário: identificados pelo telefone ou,
// depois de adotados, com o telefone só na coluna Telefone.
func (u *RecordUpserter) findByPhone(ctx context.Context, identifier, phone string) (*notion.Page, error) {
	if phone != identifier {
		page, err := u.find(ctx, u.IDProperty, phone)
		if err != nil || page != nil {
			return page, err
		}
	}
	if u.IDProperty == PropPhone {
		return nil, nil
	}
	return u.find(ctx, PropPhone, phone)
}

// refresh copia para props as chaves de in.Refresh, tipadas pelo schema.
// Sem schema a atualização segue sem elas.
func (u *RecordUpserter) refresh(ctx context.Context, props notion.Properties, in UpsertInput) {
	if len(in.Refresh) == 0 {
		return
	}
	schema, err := u.Store.DatabaseSchema(ctx)
	if err != nil {
		u.Metrics.IntegrationError("notion")
		u.Log.Warn("schema indisponível, campos extras não atualizados", "identifier", in.Identifier, "error", err)
		return
	}
	for _, name := range in.Refresh {
		def, declared := schema[name]
		if !declared {
			continue
		}
		if v, ok := propertyValue(def.Type, in.Extra[name]); ok {
			props[name] = v
		}
	}
}

// optionalNames junta as colunas conhecidas com as chaves extras, em ordem estável.
func (u *RecordUpserter) optionalNames(extra map[string]string) []string {
	seen := make(map[string]bool, len(optionalProps)+len(extra))
	names := make([]string, 0, len(optionalProps)+len(extra))
	reserved := map[string]bool{PropName: true, PropEmail: true, PropStatus: true, PropScheduledDate: true, u.IDProperty: true}

	for _, n := range optionalProps {
		seen[n] = true
		names = append(names, n)
	}
	var rest []string
	for n := range extra {
		if !seen[n] && !reserved[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// propertyValue monta o valor conforme o tipo declarado. Vazio vira o default do tipo.
func propertyValue(typ, value string) (notion.Property, bool) {
	value = strings.TrimSpace(value)
	switch typ {
	case "rich_text":
		return notion.Text(value), true
	case "title":
		return notion.Title(value), true
	case "select":
		return notion.Select(value), true
	case "multi_select":
		if value == "" {
			return notion.MultiSelect(), true
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return notion.MultiSelect(parts...), true
	case "number":
		if f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64); err == nil {
			return notion.Number(&f), true
		}
		return notion.Number(nil), true
	case "phone_number":
		return notion.Phone(value), true
	case "email":
		return notion.Email(value), true
	default:
		return nil, false
	}
}
