package analytics

import (
	"encoding/json"
	"sort"

	"github.com/maison-parfum/maison/internal/storefront"
)

// DefaultLowStockThreshold flags variants with fewer units than this on hand.
const DefaultLowStockThreshold = 10

// LowStockVariant is a variant running short, with enough product context to
// render an alert row.
type LowStockVariant struct {
	storefront.Variant
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Image       string `json:"image"`
}

func lowStockVariants(products []storefront.Product, threshold int) []LowStockVariant {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	out := make([]LowStockVariant, 0)
	for _, p := range products {
		for _, v := range p.Variants {
			if int(v.Stock) >= threshold {
				continue
			}
			out = append(out, LowStockVariant{
				Variant:     v,
				ProductID:   p.ID,
				ProductName: p.Name,
				Image:       p.Images.First(),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}

// UnmarshalJSON restores the product context next to the embedded variant,
// whose own decoder would otherwise swallow the whole object.
func (v *LowStockVariant) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &v.Variant); err != nil {
		return err
	}
	var extra struct {
		ProductID   string `json:"productId"`
		ProductName string `json:"productName"`
		Image       string `json:"image"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	v.ProductID = extra.ProductID
	v.ProductName = extra.ProductName
	v.Image = extra.Image
	return nil
}
