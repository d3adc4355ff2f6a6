package perf

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/maison-parfum/maison/internal/analytics"
	"github.com/maison-parfum/maison/internal/storefront"
)

var benchNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// syntheticInput builds a store with n orders spread over the last two years.
func syntheticInput(n int) analytics.Input {
	modes := []storefront.PaymentMode{storefront.PaymentOnline, storefront.PaymentCOD, storefront.PaymentCash}
	statuses := []storefront.OrderStatus{storefront.StatusDelivered, storefront.StatusShipped, storefront.StatusCancelled, storefront.StatusPlaced}
	payments := []storefront.PaymentStatus{storefront.PaymentPaid, storefront.PaymentPending}

	products := make([]storefront.Product, 0, 50)
	for p := 0; p < 50; p++ {
		products = append(products, storefront.Product{
			ID:       fmt.Sprintf("p%d", p),
			Name:     fmt.Sprintf("Perfume %d", p),
			Category: []string{"Attar", "Eau de Parfum", "Gift Set", ""}[p%4],
			Variants: []storefront.Variant{
				{ID: fmt.Sprintf("p%d-50", p), Stock: storefront.Quantity(p % 20), OPrice: storefront.NewAmount(float64(900 + p))},
				{ID: fmt.Sprintf("p%d-100", p), Stock: storefront.Quantity(p % 30), OPrice: storefront.NewAmount(float64(1500 + p))},
			},
		})
	}

	users := make([]storefront.User, 0, n/4)
	for u := 0; u < n/4; u++ {
		users = append(users, storefront.User{
			ID:        fmt.Sprintf("u%d", u),
			CreatedAt: storefront.NewTimestamp(benchNow.Add(-time.Duration(u) * 3 * time.Hour)),
		})
	}

	orders := make([]storefront.Order, 0, n)
	for i := 0; i < n; i++ {
		product := products[i%len(products)]
		orders = append(orders, storefront.Order{
			ID:            fmt.Sprintf("o%d", i),
			CreatedAt:     storefront.NewTimestamp(benchNow.Add(-time.Duration(i) * 97 * time.Minute)),
			TotalAmount:   storefront.NewAmount(float64(500 + i%3000)),
			Status:        statuses[i%len(statuses)],
			PaymentMode:   modes[i%len(modes)],
			PaymentStatus: payments[i%len(payments)],
			UserID:        storefront.Ref(fmt.Sprintf("u%d", i%(n/4+1))),
			Products: []storefront.OrderItem{{
				ProductID: storefront.Ref(product.ID),
				VariantID: storefront.Ref(product.Variants[0].ID),
				Quantity:  storefront.Quantity(1 + i%3),
				Price:     product.Variants[0].OPrice,
			}},
		})
	}
	return analytics.Input{Orders: orders, Users: users, Products: products, ReportOrders: orders}
}

func BenchmarkAggregate(b *testing.B) {
	for _, size := range []int{1_000, 10_000} {
		input := syntheticInput(size)
		for _, rng := range analytics.Ranges {
			b.Run(fmt.Sprintf("%s/%d", rng, size), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = analytics.Aggregate(input, rng, benchNow, analytics.Options{})
				}
			})
		}
	}
}

type memorySource struct{ input analytics.Input }

func (m memorySource) Snapshot(context.Context) (analytics.Input, error) { return m.input, nil }
func (m memorySource) Orders(context.Context) ([]storefront.Order, error) {
	return m.input.Orders, nil
}
func (m memorySource) Users(context.Context) ([]storefront.User, error) { return m.input.Users, nil }
func (m memorySource) Products(context.Context) ([]storefront.Product, error) {
	return m.input.Products, nil
}
func (m memorySource) ReportOrders(context.Context) ([]storefront.Order, error) {
	return m.input.ReportOrders, nil
}
func (m memorySource) AbandonedCarts(context.Context) ([]storefront.AbandonedCartItem, error) {
	return nil, nil
}

func TestCachedDashboardLatency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := analytics.NewService(memorySource{input: syntheticInput(5_000)}, analytics.NewCache(client, time.Minute), analytics.ServiceConfig{Location: time.UTC})
	svc.WithNow(func() time.Time { return benchNow })

	ctx := context.Background()
	if _, err := svc.Dashboard(ctx, analytics.RangeMonth); err != nil {
		t.Fatalf("cold dashboard: %v", err)
	}

	samples := make([]time.Duration, 0, 40)
	for i := 0; i < 40; i++ {
		start := time.Now()
		if _, err := svc.Dashboard(ctx, analytics.RangeMonth); err != nil {
			t.Fatalf("cached dashboard: %v", err)
		}
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 500*time.Millisecond {
		t.Fatalf("cached dashboard regression: p95=%s", p95)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	return sorted[index]
}
