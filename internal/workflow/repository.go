package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budgetease/api/internal/db"
)

// Repository fournit l'accès au stockage des demandes et besoins.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository crée un nouveau dépôt de demandes.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `id, title, description, status, user_id, department,
        validated_at, validated_by, approved_at, approved_by, rejected_at, rejected_by,
        created_at, updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&r.Status,
		&r.UserID,
		&r.Department,
		&r.ValidatedAt,
		&r.ValidatedBy,
		&r.ApprovedAt,
		&r.ApprovedBy,
		&r.RejectedAt,
		&r.RejectedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

// GetRequest charge une demande sans ses besoins.
func (r *Repository) GetRequest(ctx context.Context, id uuid.UUID) (Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

// CreateRequest insère une demande à l'état DRAFT avec ses besoins
// initiaux, dans une même transaction : une demande ne peut pas naître
// avec une partie seulement de son formulaire.
func (r *Repository) CreateRequest(ctx context.Context, input CreateRequestInput) (Request, error) {
	const requestQuery = `
        INSERT INTO requests (id, title, description, status, user_id, department)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + requestColumns

	const needQuery = `
        INSERT INTO needs (id, request_id, title, description, category_id, quantity, estimated_cost)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, request_id, title, description, category_id, '', quantity, estimated_cost, created_at
    `

	var req Request
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, requestQuery,
			uuid.New(),
			strings.TrimSpace(input.Title),
			input.Description,
			StatusDraft,
			input.UserID,
			input.Department,
		)
		created, err := scanRequest(row)
		if err != nil {
			return err
		}

		for _, needInput := range input.Needs {
			row := tx.QueryRow(ctx, needQuery,
				uuid.New(),
				created.ID,
				strings.TrimSpace(needInput.Title),
				needInput.Description,
				needInput.CategoryID,
				needInput.Quantity,
				needInput.EstimatedCost,
			)
			need, err := scanNeed(row)
			if err != nil {
				return err
			}
			created.Needs = append(created.Needs, need)
		}

		req = created
		return nil
	})
	return req, err
}

// UpdateRequestStatus pose le nouveau statut et, le cas échéant, les
// horodatages de transition. Les colonnes de trace existantes ne sont
// jamais remises à NULL : COALESCE conserve la valeur précédente.
func (r *Repository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status string, stamps StatusStamps) (Request, error) {
	const query = `
        UPDATE requests
        SET status = $2,
            validated_at = COALESCE($3, validated_at),
            validated_by = COALESCE($4, validated_by),
            approved_at  = COALESCE($5, approved_at),
            approved_by  = COALESCE($6, approved_by),
            rejected_at  = COALESCE($7, rejected_at),
            rejected_by  = COALESCE($8, rejected_by),
            updated_at   = now()
        WHERE id = $1
        RETURNING ` + requestColumns

	row := r.pool.QueryRow(ctx, query, id, status,
		stamps.ValidatedAt, stamps.ValidatedBy,
		stamps.ApprovedAt, stamps.ApprovedBy,
		stamps.RejectedAt, stamps.RejectedBy,
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

// DeleteRequest supprime la demande et, par cascade, ses besoins.
func (r *Repository) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser retourne les demandes d'un utilisateur, besoins inclus,
// triées par création décroissante.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Request, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

// ListByDepartment retourne les demandes d'un département, besoins inclus.
func (r *Repository) ListByDepartment(ctx context.Context, department string) ([]Request, error) {
	return r.list(ctx, `WHERE department = $1`, department)
}

func (r *Repository) list(ctx context.Context, where string, arg any) ([]Request, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM requests `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
		ids = append(ids, req.ID)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(requests) == 0 {
		return requests, nil
	}

	needs, err := r.listNeedsByRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	byRequest := make(map[uuid.UUID][]Need, len(requests))
	for _, n := range needs {
		byRequest[n.RequestID] = append(byRequest[n.RequestID], n)
	}
	for i := range requests {
		requests[i].Needs = byRequest[requests[i].ID]
	}
	return requests, nil
}

const needColumns = `n.id, n.request_id, n.title, n.description, n.category_id,
        COALESCE(c.name, ''), n.quantity, n.estimated_cost, n.created_at`

func scanNeed(row pgx.Row) (Need, error) {
	var n Need
	err := row.Scan(
		&n.ID,
		&n.RequestID,
		&n.Title,
		&n.Description,
		&n.CategoryID,
		&n.CategoryName,
		&n.Quantity,
		&n.EstimatedCost,
		&n.CreatedAt,
	)
	return n, err
}

func (r *Repository) listNeedsByRequests(ctx context.Context, requestIDs []uuid.UUID) ([]Need, error) {
	const query = `
        SELECT ` + needColumns + `
        FROM needs n
        LEFT JOIN categories c ON c.id = n.category_id
        WHERE n.request_id = ANY($1)
        ORDER BY n.created_at ASC
    `

	rows, err := r.pool.Query(ctx, query, requestIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var needs []Need
	for rows.Next() {
		n, err := scanNeed(rows)
		if err != nil {
			return nil, err
		}
		needs = append(needs, n)
	}
	return needs, rows.Err()
}

// ListNeeds retourne les besoins d'une demande, catégorie jointe.
func (r *Repository) ListNeeds(ctx context.Context, requestID uuid.UUID) ([]Need, error) {
	return r.listNeedsByRequests(ctx, []uuid.UUID{requestID})
}

// GetNeed charge un besoin par identifiant.
func (r *Repository) GetNeed(ctx context.Context, id uuid.UUID) (Need, error) {
	const query = `
        SELECT ` + needColumns + `
        FROM needs n
        LEFT JOIN categories c ON c.id = n.category_id
        WHERE n.id = $1
    `

	row := r.pool.QueryRow(ctx, query, id)
	need, err := scanNeed(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Need{}, ErrNeedNotFound
	}
	return need, err
}

// SiblingTitleExists vérifie l'existence d'un besoin de même titre dans la
// même demande (correspondance exacte, sensible à la casse), en excluant
// éventuellement un besoin donné. La séquence lecture-puis-écriture n'est
// pas transactionnelle : une course entre deux créations concurrentes du
// même titre reste possible, limitation assumée.
func (r *Repository) SiblingTitleExists(ctx context.Context, requestID uuid.UUID, title string, exclude *uuid.UUID) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM needs
            WHERE request_id = $1 AND title = $2 AND ($3::uuid IS NULL OR id <> $3)
        )
    `

	var exists bool
	err := r.pool.QueryRow(ctx, query, requestID, title, exclude).Scan(&exists)
	return exists, err
}

// CreateNeed insère un besoin.
func (r *Repository) CreateNeed(ctx context.Context, input NeedInput) (Need, error) {
	const query = `
        INSERT INTO needs (id, request_id, title, description, category_id, quantity, estimated_cost)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, request_id, title, description, category_id, '', quantity, estimated_cost, created_at
    `

	row := r.pool.QueryRow(ctx, query,
		uuid.New(),
		input.RequestID,
		strings.TrimSpace(input.Title),
		input.Description,
		input.CategoryID,
		input.Quantity,
		input.EstimatedCost,
	)
	return scanNeed(row)
}

// UpdateNeed met à jour les champs d'un besoin.
func (r *Repository) UpdateNeed(ctx context.Context, id uuid.UUID, input NeedInput) (Need, error) {
	const query = `
        UPDATE needs
        SET title = $2,
            description = $3,
            category_id = $4,
            quantity = $5,
            estimated_cost = $6
        WHERE id = $1
        RETURNING id, request_id, title, description, category_id, '', quantity, estimated_cost, created_at
    `

	row := r.pool.QueryRow(ctx, query, id,
		strings.TrimSpace(input.Title),
		input.Description,
		input.CategoryID,
		input.Quantity,
		input.EstimatedCost,
	)
	need, err := scanNeed(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Need{}, ErrNeedNotFound
	}
	return need, err
}

// DeleteNeed supprime un besoin par identifiant.
func (r *Repository) DeleteNeed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM needs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNeedNotFound
	}
	return nil
}
