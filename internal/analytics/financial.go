package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/maison-parfum/maison/internal/storefront"
)

var hundred = decimal.NewFromInt(100)

// Trend is the percentage change from previous to current. Growth from zero is
// reported as 100 and no movement at zero as 0.
func Trend(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

func decimalTrend(current, previous decimal.Decimal) float64 {
	return Trend(current.InexactFloat64(), previous.InexactFloat64())
}

func sumRevenue(orders []storefront.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount.Decimal)
	}
	return total
}

// orderCost sums costPrice x quantity over the order lines.
func orderCost(items []storefront.OrderItem) decimal.Decimal {
	cost := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		cost = cost.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return cost
}

// sumProfit nets line-item cost from each order total. Detailed report orders
// are preferred; the order's own lines are used when no report exists.
func sumProfit(orders []storefront.Order, reports map[string]storefront.Order) decimal.Decimal {
	profit := decimal.Zero
	for _, o := range orders {
		items := o.Items()
		if report, ok := reports[o.ID]; ok && len(report.Items()) > 0 {
			items = report.Items()
		}
		profit = profit.Add(o.TotalAmount.Sub(orderCost(items)))
	}
	return profit
}

func indexReports(reports []storefront.Order) map[string]storefront.Order {
	index := make(map[string]storefront.Order, len(reports))
	for _, r := range reports {
		if r.ID == "" {
			continue
		}
		index[r.ID] = r
	}
	return index
}

func percentOf(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
