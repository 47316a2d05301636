package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rojanatorn/apiserver/types"
)

// Effective balance expressions: the explicit balance column wins over the
// value parsed from the free-text cells. These fragments are the single
// source for both the status filter and the summary rollup, so the filter
// predicate and the per-item classification cannot drift apart.
const (
	effCtExpr  = "COALESCE(balance_ct, parsed_weight_ct, 0)"
	effPcsExpr = "COALESCE(balance_pcs, parsed_quantity_pcs, 0)"
)

var (
	lowStockPred = fmt.Sprintf(
		"((%[1]s > 0 AND %[1]s <= 1) OR (%[1]s = 0 AND %[2]s > 0 AND %[2]s <= 10))",
		effCtExpr, effPcsExpr)
	outOfStockPred = fmt.Sprintf("(%s <= 0 AND %s <= 0)", effCtExpr, effPcsExpr)
)

const gemstoneColumns = `id, source_sheet, source_row, gemstone_number, gemstone_number_text,
		gemstone_type, weight_pcs_raw, shape, price_per_ct_raw, price_per_piece_raw,
		buying_date, buying_date_raw, balance_pcs, balance_ct, use_date, use_date_raw,
		owner_name, parsed_weight_ct, parsed_quantity_pcs, parsed_price_per_ct, parsed_price_per_piece`

// GemstoneFilter narrows inventory list queries. Empty fields and the "all"
// sentinel mean no filtering on that dimension.
type GemstoneFilter struct {
	Search string
	Type   string
	Status string
}

// GemstoneRepository handles persistence for gemstone lots.
type GemstoneRepository struct {
	db *sql.DB
}

func NewGemstoneRepository(db *sql.DB) *GemstoneRepository {
	return &GemstoneRepository{db: db}
}

func (f GemstoneFilter) predicate() (string, []any) {
	var clauses []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(gemstone_number_text ILIKE %[1]s OR gemstone_type ILIKE %[1]s OR shape ILIKE %[1]s OR owner_name ILIKE %[1]s OR weight_pcs_raw ILIKE %[1]s)", p))
	}
	if t := strings.TrimSpace(f.Type); t != "" && !strings.EqualFold(t, "all") {
		args = append(args, t)
		clauses = append(clauses, fmt.Sprintf("LOWER(gemstone_type) = LOWER($%d)", len(args)))
	}
	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case "", "all":
	case types.StockStatusLowStock:
		clauses = append(clauses, lowStockPred)
	case types.StockStatusOutOfStock:
		clauses = append(clauses, outOfStockPred)
	case types.StockStatusAvailable:
		clauses = append(clauses, fmt.Sprintf("NOT %s AND NOT %s", lowStockPred, outOfStockPred))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of lots plus the total count of rows matching the
// filter independent of the paging window. Ordering is ascending by numeric
// code with NULL codes last, then by id.
func (r *GemstoneRepository) List(ctx context.Context, filter GemstoneFilter, limit, offset int) ([]types.GemstoneItem, int, error) {
	where, args := filter.predicate()

	var total int
	countQuery := "SELECT COUNT(1) FROM gem_inventory_items" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM gem_inventory_items%s
		ORDER BY gemstone_number ASC NULLS LAST, id ASC
		OFFSET $%d LIMIT $%d`, gemstoneColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]types.GemstoneItem, 0, limit)
	for rows.Next() {
		item, err := scanGemstone(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns a single lot with its usage and manufacturing history, each
// sub-list ordered most recent first.
func (r *GemstoneRepository) Get(ctx context.Context, id int64) (types.GemstoneDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM gem_inventory_items WHERE id = $1`, gemstoneColumns)
	row := r.db.QueryRowContext(ctx, query, id)
	item, err := scanGemstone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.GemstoneDetail{}, ErrNotFound
		}
		return types.GemstoneDetail{}, err
	}

	detail := types.GemstoneDetail{
		GemstoneItem:          item,
		UsageActivity:         []types.GemstoneActivityEntry{},
		ManufacturingActivity: []types.GemstoneActivityEntry{},
	}

	if item.GemstoneNumber != nil {
		usage, err := r.usageActivity(ctx, *item.GemstoneNumber)
		if err != nil {
			return types.GemstoneDetail{}, err
		}
		detail.UsageActivity = usage
	}

	manufacturing, err := r.manufacturingActivity(ctx, id)
	if err != nil {
		return types.GemstoneDetail{}, err
	}
	detail.ManufacturingActivity = manufacturing
	return detail, nil
}

func (r *GemstoneRepository) usageActivity(ctx context.Context, gemstoneNumber int64) ([]types.GemstoneActivityEntry, error) {
	const query = `
		SELECT COALESCE(b.product_code, ''), b.product_category, b.transaction_date,
			l.used_pcs, l.used_weight_ct, l.line_amount
		FROM gem_usage_lines l
		JOIN gem_usage_batches b ON b.id = l.batch_id
		WHERE l.gemstone_number = $1
		ORDER BY b.transaction_date DESC NULLS LAST, l.id DESC`
	rows, err := r.db.QueryContext(ctx, query, gemstoneNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []types.GemstoneActivityEntry{}
	for rows.Next() {
		e := types.GemstoneActivityEntry{Kind: "usage"}
		if err := rows.Scan(&e.Reference, &e.Detail, &e.Date, &e.UsedPcs, &e.UsedWeightCt, &e.Amount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *GemstoneRepository) manufacturingActivity(ctx context.Context, gemstoneID int64) ([]types.GemstoneActivityEntry, error) {
	const query = `
		SELECT p.manufacturing_code, p.piece_name, p.created_at,
			g.used_pcs, g.used_weight_ct, g.cost
		FROM manufacturing_gemstones g
		JOIN manufacturing_projects p ON p.id = g.project_id
		WHERE g.gemstone_id = $1
		ORDER BY p.created_at DESC, g.id DESC`
	rows, err := r.db.QueryContext(ctx, query, gemstoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []types.GemstoneActivityEntry{}
	for rows.Next() {
		e := types.GemstoneActivityEntry{Kind: "manufacturing"}
		var createdAt sql.NullTime
		if err := rows.Scan(&e.Reference, &e.Detail, &createdAt, &e.UsedPcs, &e.UsedWeightCt, &e.Amount); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			t := createdAt.Time
			e.Date = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary aggregates the whole inventory in one round trip.
func (r *GemstoneRepository) Summary(ctx context.Context) (types.InventorySummary, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(1),
			COUNT(1) FILTER (WHERE %s),
			COUNT(1) FILTER (WHERE %s),
			COUNT(DISTINCT LOWER(gemstone_type)),
			COALESCE(SUM(%s), 0),
			COALESCE(SUM(%s), 0)
		FROM gem_inventory_items`,
		lowStockPred, outOfStockPred, effCtExpr, effPcsExpr)

	var s types.InventorySummary
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&s.TotalItems,
		&s.LowStock,
		&s.OutOfStock,
		&s.DistinctTypes,
		&s.TotalBalanceCt,
		&s.TotalBalancePcs,
	); err != nil {
		return types.InventorySummary{}, err
	}
	s.Available = s.TotalItems - s.LowStock - s.OutOfStock
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGemstone(row rowScanner) (types.GemstoneItem, error) {
	var item types.GemstoneItem
	if err := row.Scan(
		&item.ID,
		&item.SourceSheet,
		&item.SourceRow,
		&item.GemstoneNumber,
		&item.GemstoneNumberText,
		&item.GemstoneType,
		&item.WeightPcsRaw,
		&item.Shape,
		&item.PricePerCtRaw,
		&item.PricePerPieceRaw,
		&item.BuyingDate,
		&item.BuyingDateRaw,
		&item.BalancePcs,
		&item.BalanceCt,
		&item.UseDate,
		&item.UseDateRaw,
		&item.OwnerName,
		&item.ParsedWeightCt,
		&item.ParsedQuantityPcs,
		&item.ParsedPricePerCt,
		&item.ParsedPricePerPiece,
	); err != nil {
		return types.GemstoneItem{}, err
	}
	carats, pieces := item.EffectiveBalances()
	item.Status = types.ClassifyStock(carats, pieces)
	return item, nil
}
