package session

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/clubfridge/internal/model"
)

// CartLine is one article in the cart.
type CartLine struct {
	Article   model.Article
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns quantity times unit price.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the articles scanned by one member, in first-scan order.
type Cart struct {
	lines []CartLine
}

// Add increments the quantity of the article or appends it with quantity 1.
func (c *Cart) Add(article model.Article, unitPrice decimal.Decimal) {
	for i := range c.lines {
		if c.lines[i].Article.ID == article.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, CartLine{Article: article, Quantity: 1, UnitPrice: unitPrice})
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []CartLine {
	return append([]CartLine(nil), c.lines...)
}

// Empty reports whether nothing has been scanned.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Total returns the sum of all line totals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Sales turns the cart into one pending sale per line.
func (c *Cart) Sales(ids model.IDGenerator, date model.Date, memberID string) []model.Sale {
	sales := make([]model.Sale, 0, len(c.lines))
	for _, l := range c.lines {
		sales = append(sales, model.Sale{
			ID:        ids.Generate(),
			Date:      date,
			MemberID:  memberID,
			ArticleID: l.Article.ID,
			Amount:    l.Quantity,
		})
	}
	return sales
}
