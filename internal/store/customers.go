package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rojanatorn/apiserver/types"
)

const customerColumns = `id, name, email, phone, notes, customer_since, created_at, updated_at`

// CustomerFilter narrows customer list queries.
type CustomerFilter struct {
	Search string
}

// CustomerRepository handles persistence for customers.
type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (f CustomerFilter) predicate() (string, []any) {
	if s := strings.TrimSpace(f.Search); s != "" {
		return " WHERE (name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1 OR notes ILIKE $1)",
			[]any{"%" + s + "%"}
	}
	return "", nil
}

// List returns one page of customers ordered by name, then id, plus the
// filter-wide total.
func (r *CustomerRepository) List(ctx context.Context, filter CustomerFilter, limit, offset int) ([]types.Customer, int, error) {
	where, args := filter.predicate()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM customers"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM customers%s
		ORDER BY name ASC, id ASC
		OFFSET $%d LIMIT $%d`, customerColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	customers := make([]types.Customer, 0, limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (types.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns)
	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Customer{}, ErrNotFound
		}
		return types.Customer{}, err
	}
	return c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c types.Customer) (types.Customer, error) {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	const query = `
		INSERT INTO customers (id, name, email, phone, notes, customer_since, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Notes,
		c.CustomerSince,
		c.CreatedAt,
		c.UpdatedAt,
	); err != nil {
		if IsUniqueViolation(err) {
			return types.Customer{}, ErrDuplicate
		}
		return types.Customer{}, err
	}
	return c, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c types.Customer) (types.Customer, error) {
	c.UpdatedAt = time.Now()

	const query = `
		UPDATE customers
		SET name = $1,
			email = $2,
			phone = $3,
			notes = $4,
			customer_since = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(ctx, query, c.Name, c.Email, c.Phone, c.Notes, c.CustomerSince, c.UpdatedAt, c.ID)
	if err != nil {
		return types.Customer{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Customer{}, err
	}
	if affected == 0 {
		return types.Customer{}, ErrNotFound
	}
	return c, nil
}

// AppendNote concatenates a new entry onto the notes log; existing text is
// never replaced.
func (r *CustomerRepository) AppendNote(ctx context.Context, id, note string) (types.Customer, error) {
	const query = `
		UPDATE customers
		SET notes = CASE WHEN notes = '' THEN $1 ELSE notes || E'\n' || $1 END,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, note, time.Now(), id)
	if err != nil {
		return types.Customer{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Customer{}, err
	}
	if affected == 0 {
		return types.Customer{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM customers WHERE id = $1`
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

// Activity lists the manufacturing projects linked to a customer, most
// recent first.
func (r *CustomerRepository) Activity(ctx context.Context, id string, limit int) ([]types.CustomerActivityEntry, error) {
	const query = `
		SELECT id, manufacturing_code, piece_name, status, sold_at, updated_at
		FROM manufacturing_projects
		WHERE customer_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []types.CustomerActivityEntry{}
	for rows.Next() {
		var e types.CustomerActivityEntry
		if err := rows.Scan(&e.ProjectID, &e.ManufacturingCode, &e.PieceName, &e.Status, &e.SoldAt, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanCustomer(row rowScanner) (types.Customer, error) {
	var c types.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Notes,
		&c.CustomerSince,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}
