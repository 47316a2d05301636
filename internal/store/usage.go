package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rojanatorn/apiserver/types"
)

const usageBatchColumns = `id, source_sheet, source_row, product_category, transaction_date,
		transaction_date_raw, requester_name, product_code, total_amount`

// UsageFilter narrows usage batch list queries.
type UsageFilter struct {
	Search   string
	Category string
}

// UsageRepository handles persistence for withdrawal batches and lines.
type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (f UsageFilter) predicate() (string, []any) {
	var clauses []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(product_code ILIKE %[1]s OR requester_name ILIKE %[1]s OR product_category ILIKE %[1]s)", p))
	}
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		args = append(args, c)
		clauses = append(clauses, fmt.Sprintf("LOWER(product_category) = LOWER($%d)", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of batches ordered by transaction date descending
// with NULL dates last, then id descending, plus the filter-wide total.
func (r *UsageRepository) List(ctx context.Context, filter UsageFilter, limit, offset int) ([]types.UsageBatch, int, error) {
	where, args := filter.predicate()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM gem_usage_batches"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM gem_usage_batches%s
		ORDER BY transaction_date DESC NULLS LAST, id DESC
		OFFSET $%d LIMIT $%d`, usageBatchColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	batches := make([]types.UsageBatch, 0, limit)
	for rows.Next() {
		b, err := scanUsageBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// Get returns a batch header with its lines.
func (r *UsageRepository) Get(ctx context.Context, id int64) (types.UsageBatchDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM gem_usage_batches WHERE id = $1`, usageBatchColumns)
	batch, err := scanUsageBatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UsageBatchDetail{}, ErrNotFound
		}
		return types.UsageBatchDetail{}, err
	}

	const linesQuery = `
		SELECT id, batch_id, source_row, gemstone_number, gemstone_name, used_pcs,
			used_weight_ct, unit_price_raw, line_amount, balance_pcs_after,
			balance_ct_after, requester_name
		FROM gem_usage_lines
		WHERE batch_id = $1
		ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, linesQuery, id)
	if err != nil {
		return types.UsageBatchDetail{}, err
	}
	defer rows.Close()

	detail := types.UsageBatchDetail{UsageBatch: batch, Lines: []types.UsageLine{}}
	for rows.Next() {
		var l types.UsageLine
		if err := rows.Scan(
			&l.ID,
			&l.BatchID,
			&l.SourceRow,
			&l.GemstoneNumber,
			&l.GemstoneName,
			&l.UsedPcs,
			&l.UsedWeightCt,
			&l.UnitPriceRaw,
			&l.LineAmount,
			&l.BalancePcsAfter,
			&l.BalanceCtAfter,
			&l.RequesterName,
		); err != nil {
			return types.UsageBatchDetail{}, err
		}
		detail.Lines = append(detail.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return types.UsageBatchDetail{}, err
	}
	return detail, nil
}

func scanUsageBatch(row rowScanner) (types.UsageBatch, error) {
	var b types.UsageBatch
	err := row.Scan(
		&b.ID,
		&b.SourceSheet,
		&b.SourceRow,
		&b.ProductCategory,
		&b.TransactionDate,
		&b.TransactionDateRaw,
		&b.RequesterName,
		&b.ProductCode,
		&b.TotalAmount,
	)
	return b, err
}
