package usecase

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/notion"
)

const testIDProp = "ID Agendamento"

func TestRecordUpserter_Idempotent(t *testing.T) {
	store := newFakeStore(testIDProp, nil)
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)
	start := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)

	first, err := u.Upsert(context.Background(), UpsertInput{Identifier: "abc123", Name: "Ana", StartTime: start, Email: "ana@example.com"})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := u.Upsert(context.Background(), UpsertInput{Identifier: "abc123", Name: "Ana", StartTime: start.Add(24 * time.Hour), Email: "ana@example.com"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 1, store.creates)
	require.Len(t, store.updates, 1)

	// update toca só status, email e data
	upd := store.updates[0]
	assert.Len(t, upd, 3)
	assert.Contains(t, upd, PropStatus)
	assert.Contains(t, upd, PropEmail)
	assert.Equal(t, "08-06-2025 às 12:00", textOf(upd[PropScheduledDate]))
}

func TestRecordUpserter_CreateUsesSchema(t *testing.T) {
	store := newFakeStore(testIDProp, map[string]string{
		PropPhone:      "phone_number",
		PropProfession: "rich_text",
		PropObjective:  "select",
		PropAge:        "number",
		PropTier:       "multi_select",
		PropReferral:   "formula",
	})
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)

	ref, err := u.Upsert(context.Background(), UpsertInput{
		Identifier: "abc123",
		Name:       "Ana",
		StartTime:  time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC),
		Extra: map[string]string{
			PropPhone: "+5511999999999",
			PropAge:   "31",
		},
	})
	require.NoError(t, err)
	props := store.props(ref.ID)

	assert.Equal(t, "Ana", textOf(props[PropName]))
	assert.Equal(t, entity.StatusScheduled, textOf(props[PropStatus]))
	assert.Equal(t, "07-06-2025 às 12:00", textOf(props[PropScheduledDate]))
	assert.Equal(t, "abc123", textOf(props[testIDProp]))
	assert.Nil(t, props[PropEmail])

	assert.Equal(t, "+5511999999999", textOf(props[PropPhone]))
	assert.Equal(t, notion.Text(""), props[PropProfession])
	assert.Contains(t, props, PropObjective)
	assert.Nil(t, props[PropObjective])
	assert.Equal(t, "31", textOf(props[PropAge]))
	assert.Equal(t, notion.MultiSelect(), props[PropTier])

	// não declarado ou tipo desconhecido fica de fora
	assert.NotContains(t, props, PropHistory)
	assert.NotContains(t, props, PropReferral)
}

func TestRecordUpserter_SchemaFailureDoesNotCreate(t *testing.T) {
	store := newFakeStore(testIDProp, nil)
	store.schemaErr = errors.New("notion 500")
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)

	_, err := u.Upsert(context.Background(), UpsertInput{Identifier: "abc123", Name: "Ana"})
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindUpstream, e.Kind)
	assert.Equal(t, "SCHEMA_UNAVAILABLE", e.Code)
	assert.Equal(t, 0, store.creates)
}

func TestRecordUpserter_LookupFailure(t *testing.T) {
	store := newFakeStore(testIDProp, nil)
	store.queryErr = errors.New("timeout")
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)

	_, err := u.Upsert(context.Background(), UpsertInput{Identifier: "abc123", Name: "Ana"})
	assert.True(t, IsKind(err, KindUpstream))
}

func TestRecordUpserter_MissingIdentifier(t *testing.T) {
	u := NewRecordUpserter(newFakeStore(testIDProp, nil), testIDProp, nil, nil, nil)
	_, err := u.Upsert(context.Background(), UpsertInput{Name: "Ana"})
	assert.True(t, IsKind(err, KindValidation))
}

func TestRecordUpserter_FormatsInDisplayLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	u := NewRecordUpserter(nil, testIDProp, loc, nil, nil)

	got := u.FormatScheduledDate(time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "07-06-2025 às 09:00", got)
	assert.Equal(t, "", u.FormatScheduledDate(time.Time{}))
}

func TestRecordUpserter_MarkCancelled(t *testing.T) {
	store := newFakeStore(testIDProp, nil)
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)

	found, err := u.MarkCancelled(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)

	ref, err := u.Upsert(context.Background(), UpsertInput{Identifier: "abc123", Name: "Ana"})
	require.NoError(t, err)

	found, err = u.MarkCancelled(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entity.StatusCancelled, textOf(store.props(ref.ID)[PropStatus]))
}

func TestRecordUpserter_LeadFromPage(t *testing.T) {
	u := NewRecordUpserter(nil, testIDProp, nil, nil, nil)
	page := &notion.Page{Properties: notion.Properties{
		PropName:       notion.Title("Ana"),
		PropMotivation: notion.Text("viagem"),
		testIDProp:     notion.Text("abc123"),
	}}

	lead := u.LeadFromPage(page)
	assert.Equal(t, "Ana", lead.Name)
	assert.Equal(t, "viagem", lead.Motivation)
	assert.Equal(t, "abc123", lead.ID)
	assert.Equal(t, entity.Lead{}, u.LeadFromPage(nil))
}

func TestRecordUpserter_UpdateSkipsEmptyDateAndEmail(t *testing.T) {
	store := newFakeStore(testIDProp, nil)
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)
	start := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)

	ref, err := u.Upsert(context.Background(), UpsertInput{Identifier: "abc123", Name: "Ana", StartTime: start, Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = u.Upsert(context.Background(), UpsertInput{Identifier: "abc123", Name: "Ana", Status: entity.StatusCaptured, KeepStatus: true})
	require.NoError(t, err)

	require.Len(t, store.updates, 1)
	assert.Empty(t, store.updates[0])

	props := store.props(ref.ID)
	assert.Equal(t, entity.StatusScheduled, textOf(props[PropStatus]))
	assert.Equal(t, "07-06-2025 às 12:00", textOf(props[PropScheduledDate]))
	assert.Equal(t, "ana@example.com", textOf(props[PropEmail]))
}

func TestRecordUpserter_RefreshRewritesListedExtras(t *testing.T) {
	store := newFakeStore(testIDProp, map[string]string{PropTier: "multi_select", PropHistory: "rich_text"})
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)

	ref, err := u.Upsert(context.Background(), UpsertInput{
		Identifier: "+5511988887777",
		Name:       "Bia",
		Extra:      map[string]string{PropTier: "Baixo", PropHistory: "nenhum"},
	})
	require.NoError(t, err)

	_, err = u.Upsert(context.Background(), UpsertInput{
		Identifier: "+5511988887777",
		Name:       "Bia",
		Extra:      map[string]string{PropTier: "Alto", PropHistory: "curso"},
		Refresh:    []string{PropTier},
	})
	require.NoError(t, err)

	props := store.props(ref.ID)
	assert.Equal(t, "Alto", textOf(props[PropTier]))
	assert.Equal(t, "nenhum", textOf(props[PropHistory]))
}

func TestRecordUpserter_AdoptsFormRecordByPhone(t *testing.T) {
	store := newFakeStore(testIDProp, map[string]string{PropPhone: "rich_text"})
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)

	form, err := u.Upsert(context.Background(), UpsertInput{
		Identifier: "+5511999999999",
		Name:       "Ana",
		Status:     entity.StatusCaptured,
		Extra:      map[string]string{PropPhone: "+5511999999999"},
	})
	require.NoError(t, err)

	booking, err := u.Upsert(context.Background(), UpsertInput{
		Identifier: "abc123",
		Phone:      "+5511999999999",
		Adopt:      true,
		Name:       "Ana",
		StartTime:  time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.False(t, booking.Created)
	assert.Equal(t, form.ID, booking.ID)
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, "abc123", textOf(store.props(form.ID)[testIDProp]))

	// depois de adotado, o formulário ainda acha o registro pela coluna Telefone
	again, err := u.Upsert(context.Background(), UpsertInput{
		Identifier: "+5511999999999",
		Phone:      "+5511999999999",
		Name:       "Ana",
		Status:     entity.StatusCaptured,
		KeepStatus: true,
	})
	require.NoError(t, err)
	assert.Equal(t, form.ID, again.ID)
	assert.Equal(t, entity.StatusScheduled, textOf(store.props(form.ID)[PropStatus]))
	assert.Equal(t, "abc123", textOf(store.props(form.ID)[testIDProp]))
}

func TestRecordUpserter_DoesNotAdoptAnotherBooking(t *testing.T) {
	store := newFakeStore(testIDProp, map[string]string{PropPhone: "rich_text"})
	u := NewRecordUpserter(store, testIDProp, time.UTC, discardLogger(), nil)
	in := UpsertInput{
		Identifier: "abc123",
		Phone:      "+5511999999999",
		Adopt:      true,
		Name:       "Ana",
		Extra:      map[string]string{PropPhone: "+5511999999999"},
	}

	first, err := u.Upsert(context.Background(), in)
	require.NoError(t, err)

	in.Identifier = "def456"
	second, err := u.Upsert(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, second.Created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "abc123", textOf(store.props(first.ID)[testIDProp]))
}
