// Package reporting runs the read-only SQL behind the dashboard, the exports
// and the snapshot.
package reporting

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/skuportal/inventory/models"
)

// Milestones are the profit targets shown on the dashboard.
var Milestones = []int64{100, 500, 1000, 5000}

const (
	topLimit    = 5
	recentLimit = 6
)

const variantRowsQuery = `
SELECT
	v.id AS variant_id, v.product_id, p.main_sku, v.variant_sku, p.name AS product_name,
	p.brand, p.category, v.size, v.condition, v.colour, v.date,
	v.cost, v.price, v.fees, v.net, v.profit, v.margin, v.qty, v.location, v.status
FROM variants v
JOIN products p ON p.id = v.product_id`

type Reader struct {
	db *sqlx.DB
}

func NewReader(db *sqlx.DB) *Reader {
	return &Reader{db: db}
}

// VariantRows returns every variant joined with its product, oldest first.
func (r *Reader) VariantRows(ctx context.Context) ([]models.VariantRow, error) {
	var rows []models.VariantRow
	if err := r.db.SelectContext(ctx, &rows, variantRowsQuery+" ORDER BY v.id"); err != nil {
		return nil, fmt.Errorf("failed to select variant rows: %w", err)
	}
	return rows, nil
}

// Categories returns the built-in categories merged with those in use.
func (r *Reader) Categories(ctx context.Context) ([]string, error) {
	var stored []string
	if err := r.db.SelectContext(ctx, &stored, "SELECT DISTINCT category FROM products"); err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}
	return models.MergeCategories(stored), nil
}

// Totals are the headline counters of the dashboard.
type Totals struct {
	Products  int64 `json:"products" db:"products"`
	Variants  int64 `json:"variants" db:"variants"`
	SoldQty   int64 `json:"sold" db:"sold_qty"`
	ListedQty int64 `json:"listed" db:"listed_qty"`
	DraftQty  int64 `json:"draft" db:"draft_qty"`
}

// Milestone is the next profit target and how far along it is.
// Target is nil once every milestone has been passed.
type Milestone struct {
	Target   *int64 `json:"target"`
	Progress int    `json:"progress_pct"`
}

type CategoryShare struct {
	Category string `json:"category" db:"category"`
	Qty      int64  `json:"count" db:"qty"`
	Pct      int    `json:"pct" db:"-"`
}

type BrandShare struct {
	Brand  string          `json:"brand" db:"brand"`
	Qty    int64           `json:"count" db:"qty"`
	Profit decimal.Decimal `json:"profit" db:"profit"`
}

// Stats is the home dashboard. Profit, net and margin figures only count sold variants.
type Stats struct {
	TotalProfit    decimal.Decimal     `json:"total_profit"`
	TotalNet       decimal.Decimal     `json:"total_net"`
	Totals         Totals              `json:"totals"`
	StockListValue decimal.Decimal     `json:"stock_list_value"`
	StockCostValue decimal.Decimal     `json:"stock_cost_value"`
	ListedValue    decimal.Decimal     `json:"listed_list_value"`
	AvgMargin      decimal.Decimal     `json:"avg_margin"`
	Milestone      Milestone           `json:"milestone"`
	TopCategories  []CategoryShare     `json:"top_categories"`
	TopBrands      []BrandShare        `json:"top_brands"`
	Recent         []models.VariantRow `json:"recent"`
}

type aggregates struct {
	Variants       int64           `db:"variants"`
	TotalProfit    decimal.Decimal `db:"total_profit"`
	TotalNet       decimal.Decimal `db:"total_net"`
	SoldQty        int64           `db:"sold_qty"`
	ListedQty      int64           `db:"listed_qty"`
	DraftQty       int64           `db:"draft_qty"`
	StockListValue decimal.Decimal `db:"stock_list_value"`
	StockCostValue decimal.Decimal `db:"stock_cost_value"`
	ListedValue    decimal.Decimal `db:"listed_value"`
	AvgMargin      decimal.Decimal `db:"avg_margin"`
}

const aggregatesQuery = `
SELECT
	COUNT(*) AS variants,
	COALESCE(SUM(CASE WHEN status = ? THEN profit ELSE 0 END), 0) AS total_profit,
	COALESCE(SUM(CASE WHEN status = ? THEN net ELSE 0 END), 0) AS total_net,
	COALESCE(SUM(CASE WHEN status = ? THEN qty ELSE 0 END), 0) AS sold_qty,
	COALESCE(SUM(CASE WHEN status = ? THEN qty ELSE 0 END), 0) AS listed_qty,
	COALESCE(SUM(CASE WHEN status = ? THEN qty ELSE 0 END), 0) AS draft_qty,
	COALESCE(SUM(CASE WHEN status <> ? THEN price * qty ELSE 0 END), 0) AS stock_list_value,
	COALESCE(SUM(CASE WHEN status <> ? THEN cost * qty ELSE 0 END), 0) AS stock_cost_value,
	COALESCE(SUM(CASE WHEN status = ? THEN price * qty ELSE 0 END), 0) AS listed_value,
	COALESCE(AVG(CASE WHEN status = ? THEN margin END), 0) AS avg_margin
FROM variants`

const topCategoriesQuery = `
SELECT p.category AS category, COALESCE(SUM(v.qty), 0) AS qty
FROM variants v
JOIN products p ON p.id = v.product_id
WHERE v.status = ?
GROUP BY p.category
ORDER BY qty DESC, p.category
LIMIT ?`

const topBrandsQuery = `
SELECT p.brand AS brand, COALESCE(SUM(v.qty), 0) AS qty, COALESCE(SUM(v.profit), 0) AS profit
FROM variants v
JOIN products p ON p.id = v.product_id
WHERE v.status = ?
GROUP BY p.brand
ORDER BY qty DESC, p.brand
LIMIT ?`

// Stats computes the home dashboard figures.
func (r *Reader) Stats(ctx context.Context) (*Stats, error) {
	var agg aggregates
	sold, listed, draft := models.StatusSold, models.StatusListed, models.DefaultStatus
	if err := r.db.GetContext(ctx, &agg, r.db.Rebind(aggregatesQuery),
		sold, sold, sold, listed, draft, sold, sold, listed, sold); err != nil {
		return nil, fmt.Errorf("failed to aggregate variants: %w", err)
	}

	var products int64
	if err := r.db.GetContext(ctx, &products, "SELECT COUNT(*) FROM products"); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	categories := []CategoryShare{}
	if err := r.db.SelectContext(ctx, &categories, r.db.Rebind(topCategoriesQuery), sold, topLimit); err != nil {
		return nil, fmt.Errorf("failed to select top categories: %w", err)
	}
	var maxQty int64
	for _, c := range categories {
		if c.Qty > maxQty {
			maxQty = c.Qty
		}
	}
	for i := range categories {
		if maxQty > 0 {
			categories[i].Pct = int(categories[i].Qty * 100 / maxQty)
		}
	}

	brands := []BrandShare{}
	if err := r.db.SelectContext(ctx, &brands, r.db.Rebind(topBrandsQuery), sold, topLimit); err != nil {
		return nil, fmt.Errorf("failed to select top brands: %w", err)
	}
	for i := range brands {
		brands[i].Profit = brands[i].Profit.Round(2)
	}

	recent := []models.VariantRow{}
	if err := r.db.SelectContext(ctx, &recent, r.db.Rebind(variantRowsQuery+" ORDER BY v.id DESC LIMIT ?"), recentLimit); err != nil {
		return nil, fmt.Errorf("failed to select recent variants: %w", err)
	}

	totalProfit := agg.TotalProfit.Round(2)
	return &Stats{
		TotalProfit: totalProfit,
		TotalNet:    agg.TotalNet.Round(2),
		Totals: Totals{
			Products:  products,
			Variants:  agg.Variants,
			SoldQty:   agg.SoldQty,
			ListedQty: agg.ListedQty,
			DraftQty:  agg.DraftQty,
		},
		StockListValue: agg.StockListValue.Round(2),
		StockCostValue: agg.StockCostValue.Round(2),
		ListedValue:    agg.ListedValue.Round(2),
		AvgMargin:      agg.AvgMargin.Round(2),
		Milestone:      NextMilestone(totalProfit),
		TopCategories:  categories,
		TopBrands:      brands,
		Recent:         recent,
	}, nil
}

// NextMilestone picks the first target above profit. Progress is clamped to 0..100.
func NextMilestone(profit decimal.Decimal) Milestone {
	for _, m := range Milestones {
		target := decimal.NewFromInt(m)
		if profit.LessThan(target) {
			pct := profit.Div(target).Mul(decimal.NewFromInt(100)).IntPart()
			if pct < 0 {
				pct = 0
			}
			t := m
			return Milestone{Target: &t, Progress: int(pct)}
		}
	}
	return Milestone{Progress: 100}
}
