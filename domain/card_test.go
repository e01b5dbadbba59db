package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	for _, typ := range PipelineTypes() {
		card, err := NewCard(typ)
		require.NoError(t, err)
		assert.NoError(t, card.Validate(), "new %s card", typ)
		assert.Equal(t, StatusOpen, card.Status)
	}

	_, err := NewCard(PipelineType("install"))
	assert.ErrorIs(t, err, ErrUnknownPipelineType)
}

func TestCardValidate(t *testing.T) {
	card, err := NewCard(TypeRental)
	require.NoError(t, err)
	card.Sales = &SalesDetails{}
	assert.ErrorIs(t, card.Validate(), ErrVariantMismatch)

	card, err = NewCard(TypeRental)
	require.NoError(t, err)
	card.Rental = nil
	assert.ErrorIs(t, card.Validate(), ErrVariantMismatch)

	card, err = NewCard(TypeService)
	require.NoError(t, err)
	card.Service.ServiceType = "install"
	assert.Error(t, card.Validate())
}

func TestCardMarshalJSON_Flat(t *testing.T) {
	card, err := NewCard(TypeSales)
	require.NoError(t, err)
	card.ID = "c1"
	card.Title = "Chapel"
	card.Stage = StageWon
	card.Sales.EstimateValue = decimal.RequireFromString("1500.50")

	data, err := json.Marshal(card)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "sales", fields["type"])
	assert.Equal(t, "won", fields["stage"])
	assert.Equal(t, "1500.5", fields["estimateValue"])
	assert.NotContains(t, fields, "Sales")
	assert.NotContains(t, fields, "quoteValue")
	assert.NotContains(t, fields, "appointmentDate")
}

func TestCardMarshalJSON_EmptyLists(t *testing.T) {
	card, err := NewCard(TypeService)
	require.NoError(t, err)

	data, err := json.Marshal(card)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"partsRequired":[]`)
	assert.Contains(t, string(data), `"serviceType":"maintenance"`)
}

func TestCardUnmarshalJSON(t *testing.T) {
	var card Card
	err := json.Unmarshal([]byte(`{
		"type": "rental",
		"customerId": "cust-1",
		"title": "Gala",
		"equipmentList": ["line array", "mixer"],
		"quoteValue": "1200.00",
		"estimateValue": "99"
	}`), &card)
	require.NoError(t, err)

	assert.Equal(t, TypeRental, card.Type)
	assert.Equal(t, "Gala", card.Title)
	require.NotNil(t, card.Rental)
	assert.Nil(t, card.Sales)
	assert.Equal(t, []string{"line array", "mixer"}, card.Rental.EquipmentList)
	assert.True(t, decimal.RequireFromString("1200").Equal(card.Rental.QuoteValue))
	assert.NoError(t, card.Validate())

	roundTrip, err := json.Marshal(card)
	require.NoError(t, err)
	var again Card
	require.NoError(t, json.Unmarshal(roundTrip, &again))
	assert.Equal(t, card.Rental.EquipmentList, again.Rental.EquipmentList)
}

func TestCardUnmarshalJSON_UnknownType(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing type", `{"title":"x"}`},
		{"unknown type", `{"type":"install","title":"x"}`},
		{"blank type", `{"type":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var card Card
			err := json.Unmarshal([]byte(tt.body), &card)
			assert.ErrorIs(t, err, ErrUnknownPipelineType)
		})
	}
}

func TestCardUnmarshalJSON_TypeAnyCase(t *testing.T) {
	for _, body := range []string{`{"type":"Sales","title":"a"}`, `{"type":" SALES ","title":"a"}`} {
		var card Card
		require.NoError(t, json.Unmarshal([]byte(body), &card), body)
		assert.Equal(t, TypeSales, card.Type)
		require.NotNil(t, card.Sales)
		assert.NoError(t, card.Validate())
	}
}

func TestCardUnmarshalJSON_PlainDates(t *testing.T) {
	var card Card
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "integration",
		"title": "Ballroom",
		"dueDate": "2024-05-01",
		"lastInteraction": "",
		"installationDate": "May 20, 2025",
		"equipmentStatus": {"ordered": true, "installedDate": "2025-05-22 14:30"}
	}`), &card))

	require.NotNil(t, card.DueDate)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *card.DueDate)
	assert.True(t, card.LastInteraction.IsZero())
	require.NotNil(t, card.Integration.InstallationDate)
	assert.Equal(t, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), *card.Integration.InstallationDate)
	require.NotNil(t, card.Integration.EquipmentStatus.InstalledDate)
	assert.Equal(t, time.Date(2025, 5, 22, 14, 30, 0, 0, time.UTC), *card.Integration.EquipmentStatus.InstalledDate)
	assert.True(t, card.Integration.EquipmentStatus.Ordered)

	err := json.Unmarshal([]byte(`{"type":"sales","dueDate":"next week"}`), &card)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSalesCardID(t *testing.T) {
	design, err := NewCard(TypeDesign)
	require.NoError(t, err)
	design.Design.SalesCardID = "s1"
	assert.Equal(t, "s1", design.SalesCardID())

	sales, err := NewCard(TypeSales)
	require.NoError(t, err)
	assert.Equal(t, "", sales.SalesCardID())
}
