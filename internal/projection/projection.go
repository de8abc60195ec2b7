// Package projection derives current-state entity views by replaying the
// event history in order.
package projection

import (
	"context"

	"github.com/jnst/event-sourcing-pattern/internal/model"
)

// EntityDirectory resolves entity names to their store-assigned identifiers.
type EntityDirectory interface {
	ProductID(ctx context.Context, name string) (int64, error)
	OutletID(ctx context.Context, name string) (int64, error)
}

// Product is the read-model view of a product. Price is nil until a
// ProductPriced event is replayed.
type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price *int64 `json:"price,omitempty"`
}

// StockEntry records servings of a product held by an outlet. Product points
// at the snapshot's product entry, so price changes replayed after stocking
// remain visible through the stock.
type StockEntry struct {
	Product  *Product `json:"product"`
	Servings int64    `json:"servings"`
}

// Outlet is the read-model view of an outlet and its stock.
type Outlet struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name"`
	Stock []StockEntry `json:"stock"`
}

// Snapshot is a materialized view of current entities. It is rebuilt from
// scratch on every projection and never persisted.
type Snapshot struct {
	Products []*Product `json:"products"`
	Outlets  []*Outlet  `json:"outlets"`
}

// Project folds the ordered event sequence into a fresh snapshot. The fold is
// deterministic: replaying the same sequence always yields an identical
// snapshot. Entities are matched by name; duplicate names silently merge,
// which is a known data-integrity hazard of this design. Pricing or stocking
// an entity absent from the snapshot is a silent no-op, while resolving the
// identifier of an invented product or opened outlet fails with the NotFound
// sentinels.
func Project(ctx context.Context, directory EntityDirectory, events []model.Event) (*Snapshot, error) {
	snapshot := &Snapshot{
		Products: []*Product{},
		Outlets:  []*Outlet{},
	}

	for _, event := range events {
		if err := projectOne(ctx, directory, snapshot, event); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

func projectOne(ctx context.Context, directory EntityDirectory, snapshot *Snapshot, event model.Event) error {
	switch e := event.(type) {
	case model.ProductInvented:
		id, err := directory.ProductID(ctx, e.Name())
		if err != nil {
			return err
		}

		snapshot.Products = append(snapshot.Products, &Product{ID: id, Name: e.Name()})
	case model.ProductPriced:
		for _, product := range snapshot.Products {
			if product.Name == e.Product() {
				price := e.Cents()
				product.Price = &price
			}
		}
	case model.OutletOpened:
		id, err := directory.OutletID(ctx, e.Name())
		if err != nil {
			return err
		}

		snapshot.Outlets = append(snapshot.Outlets, &Outlet{ID: id, Name: e.Name(), Stock: []StockEntry{}})
	case model.OutletStocked:
		for _, outlet := range snapshot.Outlets {
			if outlet.Name != e.Outlet() {
				continue
			}

			for _, product := range snapshot.Products {
				if product.Name != e.Product() {
					continue
				}

				outlet.Stock = append(outlet.Stock, StockEntry{
					Product:  product,
					Servings: e.Servings(),
				})
			}
		}
	}

	return nil
}
