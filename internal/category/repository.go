package category

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository fournit l'accès au stockage des catégories.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository crée un nouveau dépôt de catégories.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const categoryColumns = `id, name, description, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List retourne toutes les catégories triées par nom.
func (r *Repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetByID charge une catégorie par identifiant.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

// Create insère une catégorie active.
func (r *Repository) Create(ctx context.Context, input Input) (Category, error) {
	const query = `
        INSERT INTO categories (id, name, description, is_active)
        VALUES ($1, $2, $3, true)
        RETURNING ` + categoryColumns

	row := r.pool.QueryRow(ctx, query, uuid.New(), strings.TrimSpace(input.Name), input.Description)
	c, err := scanCategory(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Category{}, ErrNameUsed
		}
		return Category{}, err
	}
	return c, nil
}

// Update modifie nom et description.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input Input) (Category, error) {
	const query = `
        UPDATE categories
        SET name = $2, description = $3, updated_at = now()
        WHERE id = $1
        RETURNING ` + categoryColumns

	row := r.pool.QueryRow(ctx, query, id, strings.TrimSpace(input.Name), input.Description)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Category{}, ErrNameUsed
		}
		return Category{}, err
	}
	return c, nil
}

// SetActive pose le flag actif.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (Category, error) {
	const query = `
        UPDATE categories
        SET is_active = $2, updated_at = now()
        WHERE id = $1
        RETURNING ` + categoryColumns

	row := r.pool.QueryRow(ctx, query, id, active)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

// CountNeeds compte les besoins référençant la catégorie.
func (r *Repository) CountNeeds(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM needs WHERE category_id = $1`, id).Scan(&count)
	return count, err
}

// Delete supprime définitivement la catégorie.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
