package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/event-sourcing-pattern/internal/model"
	"github.com/jnst/event-sourcing-pattern/internal/projection"
	"github.com/jnst/event-sourcing-pattern/internal/repository"
)

func newSQLiteStore(t *testing.T) *repository.SQLiteEventStore {
	t.Helper()

	db, err := repository.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewSQLiteEventStore(db)
	require.NoError(t, store.CreateSchema(context.Background()))

	return store
}

func payloads(events []model.Event) []map[string]any {
	result := make([]map[string]any, len(events))
	for i, event := range events {
		result[i] = event.Payload()
	}

	return result
}

func TestSQLiteAppendAndFetchRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []model.Event{
		model.NewProductInvented("Chocolate").WithOccurredAt(base),
		model.NewProductPriced("Chocolate", 499).WithOccurredAt(base.Add(1 * time.Second)),
		model.NewOutletOpened("Pismo Beach").WithOccurredAt(base.Add(2 * time.Second)),
		model.NewOutletStocked("Pismo Beach", 24, "Chocolate").WithOccurredAt(base.Add(3 * time.Second)),
	}

	require.NoError(t, store.Append(ctx, events))

	fetched, err := store.FetchAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, payloads(events), payloads(fetched))
}

func TestSQLiteFetchAllOrdersChronologically(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Appended out of chronological order on purpose; variants land in
	// different log tables.
	require.NoError(t, store.Append(ctx, []model.Event{
		model.NewProductInvented("Chocolate").WithOccurredAt(base),
		model.NewOutletOpened("Pismo Beach").WithOccurredAt(base.Add(3 * time.Second)),
		model.NewProductPriced("Chocolate", 499).WithOccurredAt(base.Add(1 * time.Second)),
		model.NewProductInvented("Vanilla").WithOccurredAt(base.Add(2 * time.Second)),
	}))

	fetched, err := store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, fetched, 4)

	assert.Equal(t, model.KindProductInvented, fetched[0].Kind())
	assert.Equal(t, model.KindProductPriced, fetched[1].Kind())
	assert.Equal(t, model.KindProductInvented, fetched[2].Kind())
	assert.Equal(t, model.KindOutletOpened, fetched[3].Kind())

	for i := 1; i < len(fetched); i++ {
		assert.False(t, fetched[i].OccurredAt().Before(fetched[i-1].OccurredAt()))
	}
}

func TestSQLiteAppendUnknownReferenceFails(t *testing.T) {
	ctx := context.Background()

	t.Run("pricing a product that was never invented", func(t *testing.T) {
		store := newSQLiteStore(t)

		err := store.Append(ctx, []model.Event{model.NewProductPriced("Nonexistent", 100)})
		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})

	t.Run("stocking an outlet that was never opened", func(t *testing.T) {
		store := newSQLiteStore(t)
		require.NoError(t, store.Append(ctx, []model.Event{model.NewProductInvented("Chocolate")}))

		err := store.Append(ctx, []model.Event{model.NewOutletStocked("Nowhere", 24, "Chocolate")})
		assert.ErrorIs(t, err, model.ErrOutletNotFound)
	})

	t.Run("stocking a product that was never invented", func(t *testing.T) {
		store := newSQLiteStore(t)
		require.NoError(t, store.Append(ctx, []model.Event{model.NewOutletOpened("Pismo Beach")}))

		err := store.Append(ctx, []model.Event{model.NewOutletStocked("Pismo Beach", 24, "Vanilla")})
		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})
}

func TestSQLiteAppendStopsAtFirstError(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	err := store.Append(ctx, []model.Event{
		model.NewProductInvented("Chocolate"),
		model.NewProductPriced("Vanilla", 100),
		model.NewOutletOpened("Pismo Beach"),
	})
	require.ErrorIs(t, err, model.ErrProductNotFound)

	// The event before the failing one is stored, the one after is not.
	fetched, err := store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, model.KindProductInvented, fetched[0].Kind())
}

func TestSQLiteIdentifierAllocationIsMonotonic(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, []model.Event{
		model.NewProductInvented("Chocolate"),
		model.NewProductInvented("Vanilla"),
		model.NewOutletOpened("Pismo Beach"),
	}))

	chocolate, err := store.ProductID(ctx, "Chocolate")
	require.NoError(t, err)
	vanilla, err := store.ProductID(ctx, "Vanilla")
	require.NoError(t, err)
	outlet, err := store.OutletID(ctx, "Pismo Beach")
	require.NoError(t, err)

	assert.Equal(t, int64(1), chocolate)
	assert.Equal(t, int64(2), vanilla)
	assert.Equal(t, int64(1), outlet)
}

func TestSQLiteResolverRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, []model.Event{
		model.NewProductInvented("Chocolate"),
		model.NewOutletOpened("Pismo Beach"),
	}))

	productID, err := store.ProductID(ctx, "Chocolate")
	require.NoError(t, err)
	productName, err := store.ProductName(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "Chocolate", productName)

	outletID, err := store.OutletID(ctx, "Pismo Beach")
	require.NoError(t, err)
	outletName, err := store.OutletName(ctx, outletID)
	require.NoError(t, err)
	assert.Equal(t, "Pismo Beach", outletName)

	_, err = store.ProductName(ctx, 999)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	_, err = store.OutletName(ctx, 999)
	assert.ErrorIs(t, err, model.ErrOutletNotFound)
}

func TestSQLiteEndToEndProjection(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, []model.Event{
		model.NewProductInvented("Chocolate").WithOccurredAt(base),
		model.NewProductPriced("Chocolate", 499).WithOccurredAt(base.Add(1 * time.Second)),
		model.NewOutletOpened("Pismo Beach").WithOccurredAt(base.Add(2 * time.Second)),
		model.NewOutletStocked("Pismo Beach", 24, "Chocolate").WithOccurredAt(base.Add(3 * time.Second)),
	}))

	fetched, err := store.FetchAll(ctx)
	require.NoError(t, err)

	snapshot, err := projection.Project(ctx, store, fetched)
	require.NoError(t, err)

	require.Len(t, snapshot.Products, 1)
	assert.Equal(t, "Chocolate", snapshot.Products[0].Name)
	require.NotNil(t, snapshot.Products[0].Price)
	assert.Equal(t, int64(499), *snapshot.Products[0].Price)

	require.Len(t, snapshot.Outlets, 1)
	assert.Equal(t, "Pismo Beach", snapshot.Outlets[0].Name)
	require.Len(t, snapshot.Outlets[0].Stock, 1)
	assert.Equal(t, int64(24), snapshot.Outlets[0].Stock[0].Servings)
	assert.Equal(t, "Chocolate", snapshot.Outlets[0].Stock[0].Product.Name)

	// Projecting the unchanged log again yields a structurally equal snapshot.
	again, err := projection.Project(ctx, store, fetched)
	require.NoError(t, err)
	assert.Equal(t, snapshot, again)
}
