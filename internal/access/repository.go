package access

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository fournit l'accès au stockage des pages et de leur matrice.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository crée un nouveau dépôt de pages.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pageColumns = `id, name, label, route, created_at, updated_at`

func scanPage(row pgx.Row) (Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.Name, &p.Label, &p.Route, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPageByRoute cherche la page correspondant exactement à la route donnée.
func (r *Repository) GetPageByRoute(ctx context.Context, route string) (Page, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE route = $1`, route)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Page{}, ErrNotFound
	}
	return page, err
}

// GetPageByName cherche la page par son nom (clé d'upsert).
func (r *Repository) GetPageByName(ctx context.Context, name string) (Page, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE name = $1`, name)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Page{}, ErrNotFound
	}
	return page, err
}

// UpsertPage crée ou met à jour une page identifiée par son nom.
func (r *Repository) UpsertPage(ctx context.Context, name, label, route string) (Page, error) {
	const query = `
        INSERT INTO pages (id, name, label, route)
        VALUES ($1, $2, $3, NULLIF($4,''))
        ON CONFLICT (name) DO UPDATE
        SET label = EXCLUDED.label,
            route = EXCLUDED.route,
            updated_at = now()
        RETURNING ` + pageColumns

	row := r.pool.QueryRow(ctx, query, uuid.New(), strings.TrimSpace(name), strings.TrimSpace(label), strings.TrimSpace(route))
	return scanPage(row)
}

// GetPageAccess charge l'enregistrement d'accès d'un couple (page, rôle).
func (r *Repository) GetPageAccess(ctx context.Context, pageID uuid.UUID, role string) (PageAccess, error) {
	const query = `
        SELECT id, page_id, role, allowed
        FROM page_accesses
        WHERE page_id = $1 AND role = $2
    `

	var a PageAccess
	err := r.pool.QueryRow(ctx, query, pageID, role).Scan(&a.ID, &a.PageID, &a.Role, &a.Allowed)
	if errors.Is(err, pgx.ErrNoRows) {
		return PageAccess{}, ErrNotFound
	}
	return a, err
}

// UpsertPageAccess crée ou met à jour l'accès d'un couple (page, rôle).
// L'unicité du couple est portée par une contrainte en base, ce qui rend
// l'opération idempotente.
func (r *Repository) UpsertPageAccess(ctx context.Context, pageID uuid.UUID, role string, allowed bool) (PageAccess, error) {
	const query = `
        INSERT INTO page_accesses (id, page_id, role, allowed)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (page_id, role) DO UPDATE
        SET allowed = EXCLUDED.allowed
        RETURNING id, page_id, role, allowed
    `

	var a PageAccess
	err := r.pool.QueryRow(ctx, query, uuid.New(), pageID, role, allowed).
		Scan(&a.ID, &a.PageID, &a.Role, &a.Allowed)
	return a, err
}

// ListPagesWithAccess retourne toutes les pages avec leur matrice d'accès.
func (r *Repository) ListPagesWithAccess(ctx context.Context) ([]PageWithAccess, error) {
	pages, err := r.listPages(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
        SELECT id, page_id, role, allowed
        FROM page_accesses
        ORDER BY role ASC
    `

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPage := make(map[uuid.UUID][]PageAccess)
	for rows.Next() {
		var a PageAccess
		if err := rows.Scan(&a.ID, &a.PageID, &a.Role, &a.Allowed); err != nil {
			return nil, err
		}
		byPage[a.PageID] = append(byPage[a.PageID], a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	out := make([]PageWithAccess, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageWithAccess{Page: p, Accesses: byPage[p.ID]})
	}
	return out, nil
}

func (r *Repository) listPages(ctx context.Context) ([]Page, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
