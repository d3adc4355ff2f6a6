package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maison-parfum/maison/internal/storefront"
)

func TestIsRevenueEligible(t *testing.T) {
	cases := []struct {
		name  string
		order storefront.Order
		want  bool
	}{
		{"online paid shipped", storefront.Order{PaymentMode: "online", PaymentStatus: "paid", Status: "Shipped"}, true},
		{"online paid cancelled", storefront.Order{PaymentMode: "online", PaymentStatus: "paid", Status: "Order Cancelled"}, false},
		{"online pending", storefront.Order{PaymentMode: "online", PaymentStatus: "pending", Status: "Order Placed"}, false},
		{"cod processing", storefront.Order{PaymentMode: "cod", Status: "Processing"}, false},
		{"cod delivered", storefront.Order{PaymentMode: "cod", Status: "Delivered"}, true},
		{"cash delivered mixed case", storefront.Order{PaymentMode: "Cash", Status: "delivered"}, true},
		{"unknown mode", storefront.Order{PaymentMode: "barter", Status: "Delivered"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRevenueEligible(tc.order))
		})
	}
}

func TestIsVolumeEligible(t *testing.T) {
	assert.True(t, IsVolumeEligible(storefront.Order{PaymentMode: "cod", PaymentStatus: "pending"}))
	assert.True(t, IsVolumeEligible(storefront.Order{PaymentMode: "online", PaymentStatus: "paid"}))
	assert.False(t, IsVolumeEligible(storefront.Order{PaymentMode: "online", PaymentStatus: "pending"}))
	assert.False(t, IsVolumeEligible(storefront.Order{PaymentMode: "online", PaymentStatus: "pending_payment"}))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(storefront.Order{Status: " order cancelled "}))
	assert.False(t, IsCancelled(storefront.Order{Status: "Delivered"}))
}
