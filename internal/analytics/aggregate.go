package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/maison-parfum/maison/internal/storefront"
)

// Input is the snapshot the dashboard is derived from. Aggregate never mutates it.
type Input struct {
	Orders         []storefront.Order             `json:"orders"`
	Users          []storefront.User              `json:"users"`
	Products       []storefront.Product           `json:"products"`
	ReportOrders   []storefront.Order             `json:"reportOrders"`
	AbandonedCarts []storefront.AbandonedCartItem `json:"abandonedCarts"`
}

// Options tunes derivations that are store policy rather than data.
type Options struct {
	// LowStockThreshold below 1 means DefaultLowStockThreshold; the
	// low-stock list cannot be switched off.
	LowStockThreshold int
}

// Dashboard is the flat result rendered by the admin panel.
type Dashboard struct {
	Range    TimeRange `json:"range"`
	Current  Window    `json:"current"`
	Previous Window    `json:"previous"`

	Revenue      decimal.Decimal `json:"revenue"`
	RevenueTrend float64         `json:"revenueTrend"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitTrend  float64         `json:"profitTrend"`

	TotalOrders        int             `json:"totalOrders"`
	SuccessOrdersCount int             `json:"successOrdersCount"`
	SuccessTrend       float64         `json:"successTrend"`
	AOV                decimal.Decimal `json:"aov"`

	NewCustomers       int     `json:"newCustomers"`
	FirstTimeBuyers    int     `json:"firstTimeBuyers"`
	ReturningCustomers int     `json:"returningCustomers"`
	ActiveBuyersCount  int     `json:"activeBuyersCount"`
	ReturningRate      float64 `json:"returningRate"`

	LostRevenue    decimal.Decimal `json:"lostRevenue"`
	ConversionRate float64         `json:"conversionRate"`

	AbandonedVal         decimal.Decimal `json:"abandonedVal"`
	UniqueAbandonedCount int             `json:"uniqueAbandonedCount"`

	LowStockVariants []LowStockVariant `json:"lowStockVariants"`
	CategoryData     CategorySeries    `json:"categoryData"`
	ChartData        RevenueSeries     `json:"chartData"`
}

// Aggregate derives the dashboard for rng as seen at now. It is a pure function
// of its arguments: malformed records degrade to zero contributions and the
// call never fails.
func Aggregate(in Input, rng TimeRange, now time.Time, opts Options) Dashboard {
	parsed, err := ParseTimeRange(string(rng))
	if err != nil {
		parsed = RangeToday
	}
	rng = parsed
	current, previous := ResolveRange(now, rng)

	volumeNow := filterOrders(in.Orders, current, IsVolumeEligible)
	successNow := filterOrders(in.Orders, current, IsRevenueEligible)
	successPrev := filterOrders(in.Orders, previous, IsRevenueEligible)
	cancelledNow := filterOrders(in.Orders, current, IsCancelled)

	reports := indexReports(in.ReportOrders)
	products := indexProducts(in.Products)

	revenue := sumRevenue(successNow)
	revenuePrev := sumRevenue(successPrev)
	profit := sumProfit(successNow, reports)
	profitPrev := sumProfit(successPrev, reports)

	aov := decimal.Zero
	if len(successNow) > 0 {
		aov = revenue.Div(decimal.NewFromInt(int64(len(successNow)))).Round(2)
	}

	segments := segmentCustomers(current, successNow, buildHistories(in.Orders, in.Users), in.Users)
	carts := valueAbandonedCarts(in.AbandonedCarts)

	return Dashboard{
		Range:    rng,
		Current:  current,
		Previous: previous,

		Revenue:      revenue,
		RevenueTrend: decimalTrend(revenue, revenuePrev),
		Profit:       profit,
		ProfitTrend:  decimalTrend(profit, profitPrev),

		TotalOrders:        len(volumeNow),
		SuccessOrdersCount: len(successNow),
		SuccessTrend:       Trend(float64(len(successNow)), float64(len(successPrev))),
		AOV:                aov,

		NewCustomers:       segments.NewSignups,
		FirstTimeBuyers:    segments.FirstTime,
		ReturningCustomers: segments.Returning,
		ActiveBuyersCount:  segments.Active,
		ReturningRate:      percentOf(segments.Returning, segments.Active),

		LostRevenue:    sumRevenue(cancelledNow),
		ConversionRate: percentOf(len(successNow), len(volumeNow)),

		AbandonedVal:         carts.Value,
		UniqueAbandonedCount: carts.UniqueUsers,

		LowStockVariants: lowStockVariants(in.Products, opts.LowStockThreshold),
		CategoryData:     categoryVolume(successNow, products),
		ChartData:        revenueSeries(rng, current, successNow),
	}
}
