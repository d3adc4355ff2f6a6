package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/maison-parfum/maison/internal/storefront"
)

// AbandonedCarts values every cart line present in the snapshot. There is no
// recency cut-off: anything still sitting in a cart counts as abandoned.
type AbandonedCarts struct {
	Value       decimal.Decimal
	UniqueUsers int
}

func valueAbandonedCarts(items []storefront.AbandonedCartItem) AbandonedCarts {
	total := decimal.Zero
	users := make(map[string]struct{})
	for _, item := range items {
		if item.User == nil || item.Variant == nil || item.CartItem == nil {
			continue
		}
		// oprice x (1 - discount/100) x quantity
		factor := decimal.NewFromInt(1).Sub(item.Variant.Discount.Div(hundred))
		value := item.Variant.OPrice.Mul(factor).Mul(decimal.NewFromInt(int64(item.CartItem.Quantity)))
		total = total.Add(value)
		if item.User.ID != "" {
			users[item.User.ID] = struct{}{}
		}
	}
	return AbandonedCarts{Value: total, UniqueUsers: len(users)}
}
