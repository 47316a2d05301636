package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rojanatorn/apiserver/types"
)

const projectColumns = `id, manufacturing_code, piece_name, piece_type, status, designer_name,
		craftsman_name, usage_notes, photos, selling_price, total_cost, gemstone_cost,
		labor_cost, customer_id, sold_at, created_at, updated_at`

// ManufacturingFilter narrows project list queries.
type ManufacturingFilter struct {
	Search    string
	Status    string
	PieceType string
}

// ManufacturingRepository handles persistence for production projects,
// their gemstone lines, and their activity log.
type ManufacturingRepository struct {
	db *sql.DB
}

func NewManufacturingRepository(db *sql.DB) *ManufacturingRepository {
	return &ManufacturingRepository{db: db}
}

func (f ManufacturingFilter) predicate() (string, []any) {
	var clauses []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(manufacturing_code ILIKE %[1]s OR piece_name ILIKE %[1]s OR designer_name ILIKE %[1]s OR craftsman_name ILIKE %[1]s)", p))
	}
	if s := strings.TrimSpace(f.Status); s != "" && !strings.EqualFold(s, "all") {
		args = append(args, s)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if t := strings.TrimSpace(f.PieceType); t != "" && !strings.EqualFold(t, "all") {
		args = append(args, t)
		clauses = append(clauses, fmt.Sprintf("LOWER(piece_type) = LOWER($%d)", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of projects ordered newest first, plus the
// filter-wide total.
func (r *ManufacturingRepository) List(ctx context.Context, filter ManufacturingFilter, limit, offset int) ([]types.ManufacturingProject, int, error) {
	where, args := filter.predicate()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM manufacturing_projects"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM manufacturing_projects%s
		ORDER BY created_at DESC, id DESC
		OFFSET $%d LIMIT $%d`, projectColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	projects := make([]types.ManufacturingProject, 0, limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// Get returns a project with its gemstone lines and activity history.
func (r *ManufacturingRepository) Get(ctx context.Context, id int64) (types.ManufacturingDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM manufacturing_projects WHERE id = $1`, projectColumns)
	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ManufacturingDetail{}, ErrNotFound
		}
		return types.ManufacturingDetail{}, err
	}

	detail := types.ManufacturingDetail{
		ManufacturingProject: project,
		Gemstones:            []types.ProjectGemstone{},
		Activity:             []types.ProjectActivity{},
	}

	const gemsQuery = `
		SELECT id, project_id, gemstone_id, gemstone_name, used_pcs, used_weight_ct, cost
		FROM manufacturing_gemstones
		WHERE project_id = $1
		ORDER BY id ASC`
	gemRows, err := r.db.QueryContext(ctx, gemsQuery, id)
	if err != nil {
		return types.ManufacturingDetail{}, err
	}
	defer gemRows.Close()
	for gemRows.Next() {
		var g types.ProjectGemstone
		if err := gemRows.Scan(&g.ID, &g.ProjectID, &g.GemstoneID, &g.GemstoneName, &g.UsedPcs, &g.UsedWeightCt, &g.Cost); err != nil {
			return types.ManufacturingDetail{}, err
		}
		detail.Gemstones = append(detail.Gemstones, g)
	}
	if err := gemRows.Err(); err != nil {
		return types.ManufacturingDetail{}, err
	}

	const activityQuery = `
		SELECT id, project_id, status, craftsman_name, note, created_at
		FROM manufacturing_activity
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC`
	actRows, err := r.db.QueryContext(ctx, activityQuery, id)
	if err != nil {
		return types.ManufacturingDetail{}, err
	}
	defer actRows.Close()
	for actRows.Next() {
		var a types.ProjectActivity
		if err := actRows.Scan(&a.ID, &a.ProjectID, &a.Status, &a.CraftsmanName, &a.Note, &a.CreatedAt); err != nil {
			return types.ManufacturingDetail{}, err
		}
		detail.Activity = append(detail.Activity, a)
	}
	if err := actRows.Err(); err != nil {
		return types.ManufacturingDetail{}, err
	}
	return detail, nil
}

// Create inserts a project with its gemstone lines and the initial activity
// record in one transaction. A duplicate manufacturing code surfaces as
// ErrDuplicate.
func (r *ManufacturingRepository) Create(ctx context.Context, p types.ManufacturingProject, gemstones []types.ProjectGemstone, note *string) (types.ManufacturingProject, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	photosJSON, err := marshalPhotos(p.Photos)
	if err != nil {
		return types.ManufacturingProject{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ManufacturingProject{}, err
	}
	defer tx.Rollback()

	const insertQuery = `
		INSERT INTO manufacturing_projects (manufacturing_code, piece_name, piece_type, status,
			designer_name, craftsman_name, usage_notes, photos, selling_price, total_cost,
			gemstone_cost, labor_cost, customer_id, sold_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertQuery,
		p.ManufacturingCode,
		p.PieceName,
		p.PieceType,
		p.Status,
		p.DesignerName,
		p.CraftsmanName,
		p.UsageNotes,
		photosJSON,
		p.SellingPrice,
		p.TotalCost,
		p.GemstoneCost,
		p.LaborCost,
		p.CustomerID,
		p.SoldAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID); err != nil {
		if IsUniqueViolation(err) {
			return types.ManufacturingProject{}, ErrDuplicate
		}
		return types.ManufacturingProject{}, err
	}

	for _, g := range gemstones {
		const gemQuery = `
			INSERT INTO manufacturing_gemstones (project_id, gemstone_id, gemstone_name, used_pcs, used_weight_ct, cost)
			VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, gemQuery, p.ID, g.GemstoneID, g.GemstoneName, g.UsedPcs, g.UsedWeightCt, g.Cost); err != nil {
			return types.ManufacturingProject{}, err
		}
	}

	if err := insertActivity(ctx, tx, p.ID, p.Status, p.CraftsmanName, note, now); err != nil {
		return types.ManufacturingProject{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.ManufacturingProject{}, err
	}
	return p, nil
}

// Update rewrites a project's columns. When statusChanged is set it also
// appends an activity record in the same transaction.
func (r *ManufacturingRepository) Update(ctx context.Context, p types.ManufacturingProject, statusChanged bool, note *string) (types.ManufacturingProject, error) {
	p.UpdatedAt = time.Now()

	photosJSON, err := marshalPhotos(p.Photos)
	if err != nil {
		return types.ManufacturingProject{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ManufacturingProject{}, err
	}
	defer tx.Rollback()

	const query = `
		UPDATE manufacturing_projects
		SET manufacturing_code = $1,
			piece_name = $2,
			piece_type = $3,
			status = $4,
			designer_name = $5,
			craftsman_name = $6,
			usage_notes = $7,
			photos = $8,
			selling_price = $9,
			total_cost = $10,
			gemstone_cost = $11,
			labor_cost = $12,
			customer_id = $13,
			sold_at = $14,
			updated_at = $15
		WHERE id = $16`
	result, err := tx.ExecContext(
		ctx,
		query,
		p.ManufacturingCode,
		p.PieceName,
		p.PieceType,
		p.Status,
		p.DesignerName,
		p.CraftsmanName,
		p.UsageNotes,
		photosJSON,
		p.SellingPrice,
		p.TotalCost,
		p.GemstoneCost,
		p.LaborCost,
		p.CustomerID,
		p.SoldAt,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return types.ManufacturingProject{}, ErrDuplicate
		}
		return types.ManufacturingProject{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.ManufacturingProject{}, err
	}
	if affected == 0 {
		return types.ManufacturingProject{}, ErrNotFound
	}

	if statusChanged {
		if err := insertActivity(ctx, tx, p.ID, p.Status, p.CraftsmanName, note, p.UpdatedAt); err != nil {
			return types.ManufacturingProject{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.ManufacturingProject{}, err
	}
	return p, nil
}

// Delete removes a project; gemstone lines and activity cascade.
func (r *ManufacturingRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM manufacturing_projects WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func insertActivity(ctx context.Context, tx *sql.Tx, projectID int64, status string, craftsman, note *string, at time.Time) error {
	const query = `
		INSERT INTO manufacturing_activity (project_id, status, craftsman_name, note, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.ExecContext(ctx, query, projectID, status, craftsman, note, at)
	return err
}

func marshalPhotos(photos []string) ([]byte, error) {
	if photos == nil {
		photos = []string{}
	}
	return json.Marshal(photos)
}

func scanProject(row rowScanner) (types.ManufacturingProject, error) {
	var p types.ManufacturingProject
	var photosJSON []byte
	if err := row.Scan(
		&p.ID,
		&p.ManufacturingCode,
		&p.PieceName,
		&p.PieceType,
		&p.Status,
		&p.DesignerName,
		&p.CraftsmanName,
		&p.UsageNotes,
		&photosJSON,
		&p.SellingPrice,
		&p.TotalCost,
		&p.GemstoneCost,
		&p.LaborCost,
		&p.CustomerID,
		&p.SoldAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return types.ManufacturingProject{}, err
	}
	if len(photosJSON) > 0 {
		_ = json.Unmarshal(photosJSON, &p.Photos)
	}
	if p.Photos == nil {
		p.Photos = []string{}
	}
	return p, nil
}
