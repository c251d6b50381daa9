package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price is a unit price valid for an inclusive range of dates.
type Price struct {
	ValidFrom Date            `json:"valid_from"`
	ValidTo   Date            `json:"valid_to"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Covers reports whether d lies within [ValidFrom, ValidTo].
func (p Price) Covers(d Date) bool {
	return !d.Before(p.ValidFrom) && !d.After(p.ValidTo)
}

// Article is a catalog entry. Its ID doubles as the barcode printed on the
// product.
//
// Price ranges are expected not to overlap, but nothing enforces that; when
// they do, the first matching price in list order wins.
type Article struct {
	ID          string  `json:"id"`
	Designation string  `json:"designation"`
	Prices      []Price `json:"prices"`
}

// PriceOn returns the price valid on d. The second result is false when no
// price covers d; such an article cannot be sold on that date.
func (a Article) PriceOn(d Date) (Price, bool) {
	for _, p := range a.Prices {
		if p.Covers(d) {
			return p, true
		}
	}
	return Price{}, false
}

// CurrentPrice returns the price valid on the local date of now.
func (a Article) CurrentPrice(now time.Time) (Price, bool) {
	return a.PriceOn(DateOf(now))
}
