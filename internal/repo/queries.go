package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries fournit l'accès typé aux tables partagées (utilisateurs, refresh tokens).
type Queries struct {
	pool *pgxpool.Pool
}

// New crée l'accès aux requêtes.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const userColumns = `id, name, email, email_verified, password_hash, COALESCE(role, ''), COALESCE(department, 'NO'), image, background, active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.EmailVerified,
		&u.PasswordHash,
		&u.Role,
		&u.Department,
		&u.Image,
		&u.Background,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// GetUserByID charge un utilisateur par identifiant.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// GetUserByEmail charge un utilisateur par email (insensible à la casse).
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// ListUsers retourne tous les utilisateurs triés par date de création.
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser insère un nouvel utilisateur. L'unicité de l'email est garantie
// par une contrainte en base, remontée comme ErrDuplicateEmail.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	const query = `
        INSERT INTO users (id, name, email, email_verified, password_hash, role, department, active)
        VALUES ($1, $2, lower($3), false, $4, NULLIF($5,''), $6, true)
        RETURNING ` + userColumns

	row := q.pool.QueryRow(ctx, query,
		arg.ID,
		strings.TrimSpace(arg.Name),
		strings.TrimSpace(arg.Email),
		arg.PasswordHash,
		arg.Role,
		arg.Department,
	)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return user, nil
}

// UpsertUserByEmail crée l'utilisateur s'il n'existe pas, sinon met à jour
// nom, rôle et département. Sémantique de l'écran d'administration.
func (q *Queries) UpsertUserByEmail(ctx context.Context, name, email, role, department string) (User, error) {
	const query = `
        INSERT INTO users (id, name, email, email_verified, password_hash, role, department, active)
        VALUES ($1, $2, lower($3), true, '', NULLIF($4,''), $5, true)
        ON CONFLICT (email) DO UPDATE
        SET name = EXCLUDED.name,
            role = EXCLUDED.role,
            department = EXCLUDED.department,
            updated_at = now()
        RETURNING ` + userColumns

	row := q.pool.QueryRow(ctx, query, uuid.New(), strings.TrimSpace(name), strings.TrimSpace(email), role, department)
	return scanUser(row)
}

// UpdateUserProfile modifie nom et email.
func (q *Queries) UpdateUserProfile(ctx context.Context, id uuid.UUID, name, email string) error {
	tag, err := q.pool.Exec(ctx,
		`UPDATE users SET name = $2, email = lower($3), updated_at = now() WHERE id = $1`,
		id, strings.TrimSpace(name), strings.TrimSpace(email))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserImages modifie avatar et image de fond.
func (q *Queries) UpdateUserImages(ctx context.Context, id uuid.UUID, image, background *string) error {
	tag, err := q.pool.Exec(ctx,
		`UPDATE users SET image = $2, background = $3, updated_at = now() WHERE id = $1`,
		id, image, background)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserPassword remplace le hash du mot de passe.
func (q *Queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := q.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUsers supprime en masse par identifiants et renvoie le nombre
// de lignes effectivement supprimées.
func (q *Queries) DeleteUsers(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := q.pool.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertRefreshToken persiste un refresh token hashé.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	const query = `
        INSERT INTO refresh_tokens (id, subject, token_hash, expiration, created_at, revoked)
        VALUES ($1, $2, $3, $4, $5, false)
        RETURNING id, subject, token_hash, expiration, created_at, revoked
    `

	var t TokenRefresh
	err := q.pool.QueryRow(ctx, query, arg.ID, arg.Subject, arg.TokenHash, arg.Expiration, arg.CreatedAt).
		Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiration, &t.CreatedAt, &t.Revoked)
	return t, err
}

// GetRefreshTokenByHash charge un refresh token actif par hash.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (TokenRefresh, error) {
	const query = `
        SELECT id, subject, token_hash, expiration, created_at, revoked
        FROM refresh_tokens
        WHERE token_hash = $1
    `

	var t TokenRefresh
	err := q.pool.QueryRow(ctx, query, tokenHash).
		Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiration, &t.CreatedAt, &t.Revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return TokenRefresh{}, ErrNotFound
	}
	return t, err
}

// RevokeRefreshToken marque un token comme révoqué.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := q.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1`, tokenHash)
	return err
}

// InvalidateOtherRefreshTokens révoque tous les tokens du sujet sauf celui conservé.
func (q *Queries) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE subject = $1 AND token_hash <> $2`,
		subject, keepHash)
	return err
}
