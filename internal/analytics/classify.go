package analytics

import "github.com/maison-parfum/maison/internal/storefront"

// IsVolumeEligible reports whether the order counts toward order volume. Online
// checkouts that never completed payment are abandoned attempts, not orders.
func IsVolumeEligible(o storefront.Order) bool {
	if !o.PaymentMode.Is(storefront.PaymentOnline) {
		return true
	}
	return !(o.PaymentStatus.Is(storefront.PaymentPending) || o.PaymentStatus.Is(storefront.PaymentPendingPayment))
}

// IsRevenueEligible reports whether the order is realised revenue: online
// orders once paid, cash and COD orders once delivered, never when cancelled.
func IsRevenueEligible(o storefront.Order) bool {
	if o.Status.Is(storefront.StatusCancelled) {
		return false
	}
	switch {
	case o.PaymentMode.Is(storefront.PaymentOnline):
		return o.PaymentStatus.Is(storefront.PaymentPaid)
	case o.PaymentMode.Is(storefront.PaymentCOD), o.PaymentMode.Is(storefront.PaymentCash):
		return o.Status.Is(storefront.StatusDelivered)
	default:
		return false
	}
}

// IsCancelled reports whether the order was cancelled.
func IsCancelled(o storefront.Order) bool {
	return o.Status.Is(storefront.StatusCancelled)
}

func filterOrders(orders []storefront.Order, w Window, keep func(storefront.Order) bool) []storefront.Order {
	out := make([]storefront.Order, 0, len(orders))
	for _, o := range orders {
		if !o.CreatedAt.Valid || !w.Contains(o.CreatedAt.Time) {
			continue
		}
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}
