package analytics

import (
	"time"

	"github.com/maison-parfum/maison/internal/storefront"
)

type purchaseHistory struct {
	firstOrder time.Time
	orders     int
}

// CustomerSegments summarises buyers active in the current window. First-time
// and returning are independent flags, so a buyer may count in both.
type CustomerSegments struct {
	Active     int
	FirstTime  int
	Returning  int
	NewSignups int
}

// buildHistories scans all-time revenue-eligible orders per user. Orders nested
// under users are merged in when the flat order list does not already carry them.
func buildHistories(orders []storefront.Order, users []storefront.User) map[string]*purchaseHistory {
	seen := make(map[string]struct{}, len(orders))
	histories := make(map[string]*purchaseHistory)

	record := func(userID string, o storefront.Order) {
		if userID == "" || !o.CreatedAt.Valid || !IsRevenueEligible(o) {
			return
		}
		h := histories[userID]
		if h == nil {
			h = &purchaseHistory{firstOrder: o.CreatedAt.Time}
			histories[userID] = h
		}
		if o.CreatedAt.Before(h.firstOrder) {
			h.firstOrder = o.CreatedAt.Time
		}
		h.orders++
	}

	for _, o := range orders {
		if o.ID != "" {
			seen[o.ID] = struct{}{}
		}
		record(o.UserID.String(), o)
	}
	for _, u := range users {
		for _, o := range u.Orders {
			if o.ID != "" {
				if _, dup := seen[o.ID]; dup {
					continue
				}
				seen[o.ID] = struct{}{}
			}
			userID := o.UserID.String()
			if userID == "" {
				userID = u.ID
			}
			record(userID, o)
		}
	}
	return histories
}

func segmentCustomers(current Window, successOrders []storefront.Order, histories map[string]*purchaseHistory, users []storefront.User) CustomerSegments {
	active := make(map[string]struct{})
	for _, o := range successOrders {
		if id := o.UserID.String(); id != "" {
			active[id] = struct{}{}
		}
	}

	segments := CustomerSegments{Active: len(active)}
	for id := range active {
		h := histories[id]
		if h == nil {
			continue
		}
		if current.Contains(h.firstOrder) {
			segments.FirstTime++
		}
		if h.orders > 1 {
			segments.Returning++
		}
	}

	for _, u := range users {
		if u.CreatedAt.Valid && current.Contains(u.CreatedAt.Time) {
			segments.NewSignups++
		}
	}
	return segments
}
