package store

import (
	"context"
	"database/sql"

	"github.com/rojanatorn/apiserver/types"
)

// AnalyticsRepository aggregates cross-table business figures.
type AnalyticsRepository struct {
	db        *sql.DB
	gemstones *GemstoneRepository
}

func NewAnalyticsRepository(db *sql.DB, gemstones *GemstoneRepository) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, gemstones: gemstones}
}

// Report builds the full analytics snapshot in one pass per table.
func (r *AnalyticsRepository) Report(ctx context.Context) (types.AnalyticsReport, error) {
	var report types.AnalyticsReport

	inventory, err := r.gemstones.Summary(ctx)
	if err != nil {
		return types.AnalyticsReport{}, err
	}
	report.Inventory = inventory

	const usageQuery = `
		SELECT
			(SELECT COUNT(1) FROM gem_usage_batches),
			(SELECT COUNT(1) FROM gem_usage_lines),
			(SELECT COALESCE(SUM(total_amount), 0) FROM gem_usage_batches)`
	if err := r.db.QueryRowContext(ctx, usageQuery).Scan(
		&report.Usage.BatchCount,
		&report.Usage.LineCount,
		&report.Usage.TotalAmount,
	); err != nil {
		return types.AnalyticsReport{}, err
	}

	const projectsQuery = `
		SELECT
			COUNT(1),
			COUNT(1) FILTER (WHERE status = $1),
			COALESCE(SUM(selling_price) FILTER (WHERE status = $1), 0)
		FROM manufacturing_projects`
	if err := r.db.QueryRowContext(ctx, projectsQuery, types.ManufacturingStatusSold).Scan(
		&report.Manufacturing.TotalProjects,
		&report.Manufacturing.SoldCount,
		&report.Manufacturing.SoldRevenue,
	); err != nil {
		return types.AnalyticsReport{}, err
	}

	report.Manufacturing.ByStatus = map[string]int{}
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM manufacturing_projects GROUP BY status`)
	if err != nil {
		return types.AnalyticsReport{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return types.AnalyticsReport{}, err
		}
		report.Manufacturing.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return types.AnalyticsReport{}, err
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM customers`).Scan(&report.Customers.TotalCustomers); err != nil {
		return types.AnalyticsReport{}, err
	}

	return report, nil
}
