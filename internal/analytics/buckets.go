package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maison-parfum/maison/internal/storefront"
)

const (
	// UncategorizedLabel collects volume whose product cannot be resolved.
	UncategorizedLabel = "Uncategorized"

	hourlyBuckets = 24
	dailyBuckets  = 10
)

// CategorySeries is unit volume per product category.
type CategorySeries struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// RevenueSeries is realised revenue per time bucket.
type RevenueSeries struct {
	Labels  []string          `json:"labels"`
	Revenue []decimal.Decimal `json:"revenue"`
}

func categoryVolume(orders []storefront.Order, products map[string]storefront.Product) CategorySeries {
	volume := make(map[string]int)
	for _, o := range orders {
		for _, item := range o.Items() {
			category := UncategorizedLabel
			if p, ok := products[item.ProductID.String()]; ok {
				if name := strings.TrimSpace(p.Category); name != "" {
					category = name
				}
			}
			volume[category] += int(item.Quantity)
		}
	}

	labels := make([]string, 0, len(volume))
	for label := range volume {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if volume[labels[i]] != volume[labels[j]] {
			return volume[labels[i]] > volume[labels[j]]
		}
		return labels[i] < labels[j]
	})

	series := CategorySeries{Labels: labels, Data: make([]int, 0, len(labels))}
	for _, label := range labels {
		series.Data = append(series.Data, volume[label])
	}
	return series
}

// revenueSeries splits the window into equal buckets and sums realised revenue
// per bucket. The last bucket always ends at the window end.
func revenueSeries(rng TimeRange, w Window, orders []storefront.Order) RevenueSeries {
	count := dailyBuckets
	layout := "Jan 2"
	if rng == RangeToday {
		count = hourlyBuckets
		layout = "15:04"
	}
	width := w.Duration() / time.Duration(count)

	series := RevenueSeries{
		Labels:  make([]string, count),
		Revenue: make([]decimal.Decimal, count),
	}
	starts := make([]time.Time, count)
	ends := make([]time.Time, count)
	for i := 0; i < count; i++ {
		starts[i] = w.Start.Add(time.Duration(i) * width)
		ends[i] = starts[i].Add(width)
		if i == count-1 {
			ends[i] = w.End
		}
		series.Labels[i] = starts[i].Format(layout)
		series.Revenue[i] = decimal.Zero
	}

	for _, o := range orders {
		if !o.CreatedAt.Valid {
			continue
		}
		at := o.CreatedAt.Time
		for i := 0; i < count; i++ {
			if !at.Before(starts[i]) && at.Before(ends[i]) {
				series.Revenue[i] = series.Revenue[i].Add(o.TotalAmount.Decimal)
				break
			}
		}
	}
	return series
}

func indexProducts(products []storefront.Product) map[string]storefront.Product {
	index := make(map[string]storefront.Product, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		index[p.ID] = p
	}
	return index
}
