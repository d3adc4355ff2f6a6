package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/maison-parfum/maison/internal/storefront"
)

const (
	sqlOrders = `SELECT id, COALESCE(user_id, ''), total_amount::text, status, payment_mode, payment_status, created_at
FROM shop_orders ORDER BY created_at NULLS LAST, id`

	sqlOrderItems = `SELECT order_id, product_id, variant_id, quantity, price::text, COALESCE(cost_price, 0)::text
FROM shop_order_items ORDER BY order_id, line_no`

	sqlUsers = `SELECT id, name, email, created_at FROM shop_users ORDER BY id`

	sqlProducts = `SELECT id, name, category, images FROM shop_products ORDER BY id`

	sqlVariants = `SELECT id, product_id, name, stock, oprice::text, discount::text
FROM shop_variants ORDER BY product_id, id`

	sqlCarts = `SELECT u.id, u.name, u.email, v.id, v.name, v.stock, v.oprice::text, v.discount::text, c.quantity, c.added_at
FROM shop_cart_items c
JOIN shop_users u ON u.id = c.user_id
JOIN shop_variants v ON v.id = c.variant_id
ORDER BY c.added_at, u.id`
)

func queryOrders(ctx context.Context, q Querier, detailed bool) ([]storefront.Order, error) {
	rows, err := q.Query(ctx, sqlOrders)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storefront.Order, error) {
		var (
			o         storefront.Order
			userID    string
			total     string
			createdAt *time.Time
		)
		if err := row.Scan(&o.ID, &userID, &total, &o.Status, &o.PaymentMode, &o.PaymentStatus, &createdAt); err != nil {
			return o, err
		}
		o.UserID = storefront.Ref(userID)
		o.TotalAmount = amount(total)
		o.CreatedAt = timestamp(createdAt)
		return o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan orders: %w", err)
	}

	items, err := queryOrderItems(ctx, q)
	if err != nil {
		return nil, err
	}
	attachItems(orders, items, detailed)
	return orders, nil
}

type orderLine struct {
	orderID string
	item    storefront.OrderItem
}

func queryOrderItems(ctx context.Context, q Querier) ([]orderLine, error) {
	rows, err := q.Query(ctx, sqlOrderItems)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query order items: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orderLine, error) {
		var (
			l                  orderLine
			productID, variant string
			qty                int
			price, cost        string
		)
		if err := row.Scan(&l.orderID, &productID, &variant, &qty, &price, &cost); err != nil {
			return l, err
		}
		l.item = storefront.OrderItem{
			ProductID: storefront.Ref(productID),
			VariantID: storefront.Ref(variant),
			Quantity:  storefront.Quantity(qty),
			Price:     amount(price),
			CostPrice: amount(cost),
		}
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan order items: %w", err)
	}
	return lines, nil
}

// attachItems places each line on its order: on OrderItems for report orders
// and on Products for the summary view.
func attachItems(orders []storefront.Order, lines []orderLine, detailed bool) {
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		index[o.ID] = i
	}
	for _, l := range lines {
		i, ok := index[l.orderID]
		if !ok {
			continue
		}
		if detailed {
			orders[i].OrderItems = append(orders[i].OrderItems, l.item)
		} else {
			orders[i].Products = append(orders[i].Products, l.item)
		}
	}
}

func queryUsers(ctx context.Context, q Querier) ([]storefront.User, error) {
	rows, err := q.Query(ctx, sqlUsers)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query users: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storefront.User, error) {
		var (
			u         storefront.User
			createdAt *time.Time
		)
		if err := row.Scan(&u.ID, &u.Name, &u.Email, &createdAt); err != nil {
			return u, err
		}
		u.CreatedAt = timestamp(createdAt)
		return u, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan users: %w", err)
	}
	return users, nil
}

func queryProducts(ctx context.Context, q Querier) ([]storefront.Product, error) {
	rows, err := q.Query(ctx, sqlProducts)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storefront.Product, error) {
		var (
			p      storefront.Product
			images []string
		)
		if err := row.Scan(&p.ID, &p.Name, &p.Category, &images); err != nil {
			return p, err
		}
		p.Images = storefront.ImageSet(images)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan products: %w", err)
	}

	rows, err = q.Query(ctx, sqlVariants)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query variants: %w", err)
	}
	type productVariant struct {
		productID string
		variant   storefront.Variant
	}
	variants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (productVariant, error) {
		var (
			pv               productVariant
			stock            int
			oprice, discount string
		)
		if err := row.Scan(&pv.variant.ID, &pv.productID, &pv.variant.Name, &stock, &oprice, &discount); err != nil {
			return pv, err
		}
		pv.variant.Stock = storefront.Quantity(stock)
		pv.variant.OPrice = amount(oprice)
		pv.variant.Discount = amount(discount)
		return pv, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan variants: %w", err)
	}

	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}
	for _, pv := range variants {
		if i, ok := index[pv.productID]; ok {
			products[i].Variants = append(products[i].Variants, pv.variant)
		}
	}
	return products, nil
}

func queryCarts(ctx context.Context, q Querier) ([]storefront.AbandonedCartItem, error) {
	rows, err := q.Query(ctx, sqlCarts)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query carts: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storefront.AbandonedCartItem, error) {
		var (
			user             storefront.CartUser
			variant          storefront.Variant
			stock, qty       int
			oprice, discount string
			addedAt          time.Time
		)
		if err := row.Scan(&user.ID, &user.Name, &user.Email, &variant.ID, &variant.Name, &stock, &oprice, &discount, &qty, &addedAt); err != nil {
			return storefront.AbandonedCartItem{}, err
		}
		variant.Stock = storefront.Quantity(stock)
		variant.OPrice = amount(oprice)
		variant.Discount = amount(discount)
		return storefront.AbandonedCartItem{
			User:     &user,
			Variant:  &variant,
			CartItem: &storefront.CartEntry{Quantity: storefront.Quantity(qty), AddedAt: storefront.NewTimestamp(addedAt)},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan carts: %w", err)
	}
	return items, nil
}

func amount(raw string) storefront.Amount {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return storefront.Amount{Invalid: true}
	}
	return storefront.AmountFromDecimal(d)
}

func timestamp(t *time.Time) storefront.Timestamp {
	if t == nil {
		return storefront.Timestamp{}
	}
	return storefront.NewTimestamp(*t)
}
