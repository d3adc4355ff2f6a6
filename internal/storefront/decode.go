package storefront

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value decoded leniently from the backend. Numbers, numeric
// strings and null are accepted; anything else decodes to zero and marks the
// amount invalid instead of failing the payload.
type Amount struct {
	decimal.Decimal
	Invalid bool
}

// NewAmount builds an Amount from a float, mostly for fixtures.
func NewAmount(v float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(v)}
}

// AmountFromDecimal wraps an existing decimal.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	raw := unquote(data)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		a.Invalid = true
		return nil
	}
	a.Decimal = d
	return nil
}

// MarshalJSON emits the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Timestamp accepts RFC 3339 strings, plain dates and Unix milliseconds.
type Timestamp struct {
	time.Time
	Valid bool
}

// NewTimestamp wraps a time value.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: !t.IsZero()}
}

var wallClock atomic.Pointer[time.Location]

// SetWallClockLocation sets the zone applied to timestamps sent without an
// offset. The default is UTC.
func SetWallClockLocation(loc *time.Location) {
	wallClock.Store(loc)
}

func wallClockLocation() *time.Location {
	if loc := wallClock.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] != '"' {
		ms, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return nil
		}
		t.Time = time.UnixMilli(int64(ms)).UTC()
		t.Valid = true
		return nil
	}
	raw := unquote(trimmed)
	loc := wallClockLocation()
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			t.Time = parsed
			t.Valid = true
			return nil
		}
	}
	return nil
}

// MarshalJSON emits RFC 3339 or null for invalid timestamps.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Quantity is an integer count that tolerates floats and numeric strings.
type Quantity int

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = 0
	raw := unquote(data)
	if raw == "" {
		return nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*q = Quantity(v)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*q = Quantity(int(f))
	}
	return nil
}

// Ref is an identifier that may arrive as a string, a number, or a populated
// object carrying `_id` or `id`.
type Ref string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(data []byte) error {
	*r = ""
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '{':
		var obj struct {
			MongoID Ref `json:"_id"`
			ID      Ref `json:"id"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		if obj.MongoID != "" {
			*r = obj.MongoID
			return nil
		}
		*r = obj.ID
		return nil
	case '[':
		return nil
	}
	*r = Ref(unquote(trimmed))
	return nil
}

// String returns the identifier.
func (r Ref) String() string { return string(r) }

// ImageSet is the product image list. The backend sends either a single URL,
// an array, or an array JSON-encoded inside a string.
type ImageSet []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *ImageSet) UnmarshalJSON(data []byte) error {
	*s = nil
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		*s = decodeImageArray(trimmed)
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		*s = decodeImageArray([]byte(raw))
		return nil
	}
	if raw != "" {
		*s = ImageSet{raw}
	}
	return nil
}

// First returns the primary image or an empty string.
func (s ImageSet) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func decodeImageArray(data []byte) ImageSet {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make(ImageSet, 0, len(items))
	for _, item := range items {
		var url string
		if err := json.Unmarshal(item, &url); err != nil {
			continue
		}
		if url = strings.TrimSpace(url); url != "" {
			out = append(out, url)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func unquote(data []byte) string {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return ""
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return strings.TrimSpace(s)
		}
		raw = raw[1 : len(raw)-1]
	}
	return strings.TrimSpace(raw)
}

// UnmarshalJSON accepts both `id` and Mongo-style `_id`.
func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	aux := struct {
		*alias
		MongoID Ref `json:"_id"`
		RawID   Ref `json:"id"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.ID = pickID(aux.RawID, aux.MongoID)
	return nil
}

// UnmarshalJSON accepts both `id` and Mongo-style `_id`.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		MongoID Ref `json:"_id"`
		RawID   Ref `json:"id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.ID = pickID(aux.RawID, aux.MongoID)
	return nil
}

// UnmarshalJSON accepts both `id` and Mongo-style `_id`.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		MongoID Ref `json:"_id"`
		RawID   Ref `json:"id"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.ID = pickID(aux.RawID, aux.MongoID)
	return nil
}

// UnmarshalJSON accepts both `id` and Mongo-style `_id`.
func (v *Variant) UnmarshalJSON(data []byte) error {
	type alias Variant
	aux := struct {
		*alias
		MongoID Ref `json:"_id"`
		RawID   Ref `json:"id"`
	}{alias: (*alias)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.ID = pickID(aux.RawID, aux.MongoID)
	return nil
}

// UnmarshalJSON accepts both `id` and Mongo-style `_id`.
func (c *CartUser) UnmarshalJSON(data []byte) error {
	type alias CartUser
	aux := struct {
		*alias
		MongoID Ref `json:"_id"`
		RawID   Ref `json:"id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.ID = pickID(aux.RawID, aux.MongoID)
	return nil
}

func pickID(id, mongoID Ref) string {
	if id != "" {
		return string(id)
	}
	return string(mongoID)
}
