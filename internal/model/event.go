// Package model defines the domain events and their data structures.
package model

import (
	"context"
	"fmt"
	"time"
)

// DateFormat is the storage format for event timestamps (second precision, no timezone).
const DateFormat = "2006-01-02 15:04:05"

// Kind identifies the variant of an event.
type Kind string

const (
	// KindProductInvented identifies ProductInvented events.
	KindProductInvented Kind = "product_invented"
	// KindProductPriced identifies ProductPriced events.
	KindProductPriced Kind = "product_priced"
	// KindOutletOpened identifies OutletOpened events.
	KindOutletOpened Kind = "outlet_opened"
	// KindOutletStocked identifies OutletStocked events.
	KindOutletStocked Kind = "outlet_stocked"
)

// Event is an immutable record of a fact that happened. The set of variants is
// closed: ProductInvented, ProductPriced, OutletOpened and OutletStocked.
// Payload fields referencing other entities always carry names, never raw
// identifiers; identifier resolution happens at the storage boundary.
type Event interface {
	// Kind returns the variant tag of the event.
	Kind() Kind
	// OccurredAt returns when the event occurred, at second precision.
	OccurredAt() time.Time
	// WithOccurredAt returns a copy of the event with a different occurrence
	// time. The receiver is left untouched.
	WithOccurredAt(t time.Time) Event
	// Payload returns the variant fields plus the formatted occurrence date.
	Payload() map[string]any

	sealed()
}

// EntityResolver translates store-assigned identifiers back to entity names
// when events are rebuilt from their stored rows.
type EntityResolver interface {
	ProductName(ctx context.Context, id int64) (string, error)
	OutletName(ctx context.Context, id int64) (string, error)
}

func occurredNow() time.Time {
	return time.Now().Truncate(time.Second)
}

func parseDate(date string) (time.Time, error) {
	occurredAt, err := time.Parse(DateFormat, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse event date %q: %w", date, err)
	}

	return occurredAt, nil
}

// ProductInvented records that a new product came into existence.
type ProductInvented struct {
	name       string
	occurredAt time.Time
}

// NewProductInvented creates a ProductInvented event occurring now.
func NewProductInvented(name string) ProductInvented {
	return ProductInvented{name: name, occurredAt: occurredNow()}
}

// ProductInventedFromStored rebuilds a ProductInvented event from its stored columns.
func ProductInventedFromStored(name, date string) (ProductInvented, error) {
	occurredAt, err := parseDate(date)
	if err != nil {
		return ProductInvented{}, err
	}

	return ProductInvented{name: name, occurredAt: occurredAt}, nil
}

// Kind returns KindProductInvented.
func (ProductInvented) Kind() Kind { return KindProductInvented }

// Name returns the invented product's name.
func (e ProductInvented) Name() string { return e.name }

// OccurredAt returns when the event occurred.
func (e ProductInvented) OccurredAt() time.Time { return e.occurredAt }

// WithOccurredAt returns a copy of the event occurring at t.
func (e ProductInvented) WithOccurredAt(t time.Time) Event {
	e.occurredAt = t.Truncate(time.Second)
	return e
}

// Payload returns the event fields keyed by their canonical names.
func (e ProductInvented) Payload() map[string]any {
	return map[string]any{
		"name": e.name,
		"date": e.occurredAt.Format(DateFormat),
	}
}

func (ProductInvented) sealed() {}

// ProductPriced records that a product was given a price in cents.
type ProductPriced struct {
	product    string
	cents      int64
	occurredAt time.Time
}

// NewProductPriced creates a ProductPriced event occurring now. The product is
// referenced by name.
func NewProductPriced(product string, cents int64) ProductPriced {
	return ProductPriced{product: product, cents: cents, occurredAt: occurredNow()}
}

// ProductPricedFromStored rebuilds a ProductPriced event from its stored
// columns, translating the stored product identifier back to a name.
func ProductPricedFromStored(
	ctx context.Context, resolver EntityResolver, productID, cents int64, date string,
) (ProductPriced, error) {
	product, err := resolver.ProductName(ctx, productID)
	if err != nil {
		return ProductPriced{}, err
	}

	occurredAt, err := parseDate(date)
	if err != nil {
		return ProductPriced{}, err
	}

	return ProductPriced{product: product, cents: cents, occurredAt: occurredAt}, nil
}

// Kind returns KindProductPriced.
func (ProductPriced) Kind() Kind { return KindProductPriced }

// Product returns the name of the priced product.
func (e ProductPriced) Product() string { return e.product }

// Cents returns the price in cents.
func (e ProductPriced) Cents() int64 { return e.cents }

// OccurredAt returns when the event occurred.
func (e ProductPriced) OccurredAt() time.Time { return e.occurredAt }

// WithOccurredAt returns a copy of the event occurring at t.
func (e ProductPriced) WithOccurredAt(t time.Time) Event {
	e.occurredAt = t.Truncate(time.Second)
	return e
}

// Payload returns the event fields keyed by their canonical names.
func (e ProductPriced) Payload() map[string]any {
	return map[string]any{
		"product": e.product,
		"cents":   e.cents,
		"date":    e.occurredAt.Format(DateFormat),
	}
}

func (ProductPriced) sealed() {}

// OutletOpened records that a new outlet opened.
type OutletOpened struct {
	name       string
	occurredAt time.Time
}

// NewOutletOpened creates an OutletOpened event occurring now.
func NewOutletOpened(name string) OutletOpened {
	return OutletOpened{name: name, occurredAt: occurredNow()}
}

// OutletOpenedFromStored rebuilds an OutletOpened event from its stored columns.
func OutletOpenedFromStored(name, date string) (OutletOpened, error) {
	occurredAt, err := parseDate(date)
	if err != nil {
		return OutletOpened{}, err
	}

	return OutletOpened{name: name, occurredAt: occurredAt}, nil
}

// Kind returns KindOutletOpened.
func (OutletOpened) Kind() Kind { return KindOutletOpened }

// Name returns the opened outlet's name.
func (e OutletOpened) Name() string { return e.name }

// OccurredAt returns when the event occurred.
func (e OutletOpened) OccurredAt() time.Time { return e.occurredAt }

// WithOccurredAt returns a copy of the event occurring at t.
func (e OutletOpened) WithOccurredAt(t time.Time) Event {
	e.occurredAt = t.Truncate(time.Second)
	return e
}

// Payload returns the event fields keyed by their canonical names.
func (e OutletOpened) Payload() map[string]any {
	return map[string]any{
		"name": e.name,
		"date": e.occurredAt.Format(DateFormat),
	}
}

func (OutletOpened) sealed() {}

// OutletStocked records that an outlet received servings of a product.
type OutletStocked struct {
	outlet     string
	servings   int64
	product    string
	occurredAt time.Time
}

// NewOutletStocked creates an OutletStocked event occurring now. Outlet and
// product are referenced by name.
func NewOutletStocked(outlet string, servings int64, product string) OutletStocked {
	return OutletStocked{
		outlet:     outlet,
		servings:   servings,
		product:    product,
		occurredAt: occurredNow(),
	}
}

// OutletStockedFromStored rebuilds an OutletStocked event from its stored
// columns, translating the stored outlet and product identifiers back to names.
func OutletStockedFromStored(
	ctx context.Context, resolver EntityResolver, outletID, servings, productID int64, date string,
) (OutletStocked, error) {
	outlet, err := resolver.OutletName(ctx, outletID)
	if err != nil {
		return OutletStocked{}, err
	}

	product, err := resolver.ProductName(ctx, productID)
	if err != nil {
		return OutletStocked{}, err
	}

	occurredAt, err := parseDate(date)
	if err != nil {
		return OutletStocked{}, err
	}

	return OutletStocked{
		outlet:     outlet,
		servings:   servings,
		product:    product,
		occurredAt: occurredAt,
	}, nil
}

// Kind returns KindOutletStocked.
func (OutletStocked) Kind() Kind { return KindOutletStocked }

// Outlet returns the name of the stocked outlet.
func (e OutletStocked) Outlet() string { return e.outlet }

// Servings returns the number of stocked servings.
func (e OutletStocked) Servings() int64 { return e.servings }

// Product returns the name of the stocked product.
func (e OutletStocked) Product() string { return e.product }

// OccurredAt returns when the event occurred.
func (e OutletStocked) OccurredAt() time.Time { return e.occurredAt }

// WithOccurredAt returns a copy of the event occurring at t.
func (e OutletStocked) WithOccurredAt(t time.Time) Event {
	e.occurredAt = t.Truncate(time.Second)
	return e
}

// Payload returns the event fields keyed by their canonical names.
func (e OutletStocked) Payload() map[string]any {
	return map[string]any{
		"outlet":   e.outlet,
		"servings": e.servings,
		"product":  e.product,
		"date":     e.occurredAt.Format(DateFormat),
	}
}

func (OutletStocked) sealed() {}
