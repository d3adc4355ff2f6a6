package storefront

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountDecodesLeniently(t *testing.T) {
	cases := map[string]struct {
		raw     string
		want    string
		invalid bool
	}{
		"number":         {raw: `1299.50`, want: "1299.5"},
		"numeric string": {raw: `"450"`, want: "450"},
		"null":           {raw: `null`, want: "0"},
		"empty string":   {raw: `""`, want: "0"},
		"garbage":        {raw: `"abc"`, want: "0", invalid: true},
		"nan":            {raw: `"NaN"`, want: "0", invalid: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &a))
			assert.True(t, a.Equal(decimal.RequireFromString(tc.want)), "got %s", a.String())
			assert.Equal(t, tc.invalid, a.Invalid)
		})
	}
}

func TestTimestampFormats(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04T10:15:00.123Z"`), &ts))
	require.True(t, ts.Valid)
	assert.Equal(t, 123*int(time.Millisecond), ts.Nanosecond())

	require.NoError(t, json.Unmarshal([]byte(`1700000000000`), &ts))
	require.True(t, ts.Valid)
	assert.Equal(t, int64(1700000000), ts.Unix())

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04"`), &ts))
	require.True(t, ts.Valid)
	assert.Equal(t, 4, ts.Day())

	require.NoError(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.False(t, ts.Valid)

	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestTimestampWithoutOffsetUsesStoreZone(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	SetWallClockLocation(kolkata)
	t.Cleanup(func() { SetWallClockLocation(nil) })

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04T00:30:00"`), &ts))
	require.True(t, ts.Valid)
	assert.Equal(t, time.Date(2025, time.March, 3, 19, 0, 0, 0, time.UTC), ts.UTC())

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04 00:30:00"`), &ts))
	assert.Equal(t, 4, ts.In(kolkata).Day())

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04T00:30:00Z"`), &ts))
	assert.Equal(t, time.Date(2025, time.March, 4, 0, 30, 0, 0, time.UTC), ts.UTC())
}

func TestRefAcceptsPopulatedObjects(t *testing.T) {
	var item OrderItem
	payload := `{"productId":{"_id":"p-1","name":"Oud Noir"},"variantId":42,"quantity":"3","costPrice":"250"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &item))
	assert.Equal(t, Ref("p-1"), item.ProductID)
	assert.Equal(t, Ref("42"), item.VariantID)
	assert.Equal(t, Quantity(3), item.Quantity)
	assert.True(t, item.CostPrice.Equal(decimal.NewFromInt(250)))
}

func TestImageSetShapes(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want ImageSet
	}{
		"single url":     {raw: `"https://cdn.example/a.jpg"`, want: ImageSet{"https://cdn.example/a.jpg"}},
		"array":          {raw: `["a.jpg","b.jpg"]`, want: ImageSet{"a.jpg", "b.jpg"}},
		"encoded array":  {raw: `"[\"a.jpg\",\"b.jpg\"]"`, want: ImageSet{"a.jpg", "b.jpg"}},
		"mixed elements": {raw: `["a.jpg", 7, ""]`, want: ImageSet{"a.jpg"}},
		"null":           {raw: `null`, want: nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var s ImageSet
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &s))
			assert.Equal(t, tc.want, s)
		})
	}
}

func TestOrderDecodesMongoIDAndItems(t *testing.T) {
	payload := `{
		"_id": "o-9",
		"createdAt": "2025-05-01T08:00:00Z",
		"totalAmount": 2400,
		"status": "Delivered",
		"paymentMode": "cod",
		"paymentStatus": "pending",
		"userId": {"_id": "u-1"},
		"products": [{"productId": "p-1", "quantity": 2}]
	}`
	var order Order
	require.NoError(t, json.Unmarshal([]byte(payload), &order))
	assert.Equal(t, "o-9", order.ID)
	assert.Equal(t, Ref("u-1"), order.UserID)
	require.Len(t, order.Items(), 1)
	assert.Equal(t, Ref("p-1"), order.Items()[0].ProductID)
	assert.True(t, order.Status.Is(StatusDelivered))

	order.OrderItems = []OrderItem{{ProductID: "p-2", Quantity: 1}}
	assert.Equal(t, Ref("p-2"), order.Items()[0].ProductID)
}

func TestStatusComparisonIgnoresCaseAndSpace(t *testing.T) {
	assert.True(t, OrderStatus(" order cancelled ").Is(StatusCancelled))
	assert.True(t, PaymentMode("COD").Is(PaymentCOD))
	assert.False(t, PaymentStatus("paid ").Is(PaymentPending))
}
