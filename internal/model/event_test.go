package model_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/event-sourcing-pattern/internal/model"
)

type stubResolver struct {
	products map[int64]string
	outlets  map[int64]string
}

func (r stubResolver) ProductName(_ context.Context, id int64) (string, error) {
	name, ok := r.products[id]
	if !ok {
		return "", model.ErrProductNotFound
	}

	return name, nil
}

func (r stubResolver) OutletName(_ context.Context, id int64) (string, error) {
	name, ok := r.outlets[id]
	if !ok {
		return "", model.ErrOutletNotFound
	}

	return name, nil
}

func TestPayloadContainsCanonicalFields(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

	invented := model.NewProductInvented("Chocolate").WithOccurredAt(at)
	assert.Equal(t, map[string]any{
		"name": "Chocolate",
		"date": "2024-05-01 12:30:45",
	}, invented.Payload())

	priced := model.NewProductPriced("Chocolate", 499).WithOccurredAt(at)
	assert.Equal(t, map[string]any{
		"product": "Chocolate",
		"cents":   int64(499),
		"date":    "2024-05-01 12:30:45",
	}, priced.Payload())

	opened := model.NewOutletOpened("Pismo Beach").WithOccurredAt(at)
	assert.Equal(t, map[string]any{
		"name": "Pismo Beach",
		"date": "2024-05-01 12:30:45",
	}, opened.Payload())

	stocked := model.NewOutletStocked("Pismo Beach", 24, "Chocolate").WithOccurredAt(at)
	assert.Equal(t, map[string]any{
		"outlet":   "Pismo Beach",
		"servings": int64(24),
		"product":  "Chocolate",
		"date":     "2024-05-01 12:30:45",
	}, stocked.Payload())
}

func TestOccurredAtDefaultsToCreationTimeAtSecondPrecision(t *testing.T) {
	before := time.Now().Truncate(time.Second)
	event := model.NewProductInvented("Chocolate")
	after := time.Now().Truncate(time.Second)

	occurredAt := event.OccurredAt()
	assert.Zero(t, occurredAt.Nanosecond())
	assert.False(t, occurredAt.Before(before))
	assert.False(t, occurredAt.After(after))
}

func TestWithOccurredAtReturnsCopy(t *testing.T) {
	original := model.NewProductInvented("Chocolate")
	originalAt := original.OccurredAt()

	shifted := original.WithOccurredAt(originalAt.Add(-24 * time.Hour))

	assert.Equal(t, originalAt, original.OccurredAt(), "original event must stay untouched")
	assert.Equal(t, originalAt.Add(-24*time.Hour), shifted.OccurredAt())
	assert.Equal(t, model.KindProductInvented, shifted.Kind())
}

func TestWithOccurredAtTruncatesToSeconds(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 123456789, time.UTC)
	event := model.NewProductPriced("Chocolate", 499).WithOccurredAt(at)

	assert.Equal(t, at.Truncate(time.Second), event.OccurredAt())
}

func TestProductInventedFromStored(t *testing.T) {
	event, err := model.ProductInventedFromStored("Chocolate", "2024-05-01 12:30:45")
	require.NoError(t, err)

	assert.Equal(t, "Chocolate", event.Name())
	assert.Equal(t, "2024-05-01 12:30:45", event.OccurredAt().Format(model.DateFormat))
}

func TestFromStoredRejectsMalformedDate(t *testing.T) {
	_, err := model.ProductInventedFromStored("Chocolate", "yesterday")
	assert.Error(t, err)

	_, err = model.OutletOpenedFromStored("Pismo Beach", "2024-05-01")
	assert.Error(t, err)
}

func TestProductPricedFromStoredResolvesName(t *testing.T) {
	resolver := stubResolver{products: map[int64]string{1: "Chocolate"}}

	event, err := model.ProductPricedFromStored(context.Background(), resolver, 1, 499, "2024-05-01 12:30:45")
	require.NoError(t, err)

	assert.Equal(t, "Chocolate", event.Product())
	assert.Equal(t, int64(499), event.Cents())
}

func TestProductPricedFromStoredFailsOnUnknownIdentifier(t *testing.T) {
	resolver := stubResolver{}

	_, err := model.ProductPricedFromStored(context.Background(), resolver, 42, 499, "2024-05-01 12:30:45")
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestOutletStockedFromStoredResolvesBothNames(t *testing.T) {
	resolver := stubResolver{
		products: map[int64]string{1: "Chocolate"},
		outlets:  map[int64]string{1: "Pismo Beach"},
	}

	event, err := model.OutletStockedFromStored(context.Background(), resolver, 1, 24, 1, "2024-05-01 12:30:45")
	require.NoError(t, err)

	assert.Equal(t, "Pismo Beach", event.Outlet())
	assert.Equal(t, int64(24), event.Servings())
	assert.Equal(t, "Chocolate", event.Product())
}

func TestOutletStockedFromStoredFailsOnUnknownOutlet(t *testing.T) {
	resolver := stubResolver{products: map[int64]string{1: "Chocolate"}}

	_, err := model.OutletStockedFromStored(context.Background(), resolver, 7, 24, 1, "2024-05-01 12:30:45")
	assert.ErrorIs(t, err, model.ErrOutletNotFound)
}
