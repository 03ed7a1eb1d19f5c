package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/database"
)

var _ database.Store = (*Store)(nil)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	tokenKey []byte
}

// NewStore creates a new Store backed by the given connection pool. tokenKey
// encrypts OAuth tokens at rest; see integration.DeriveKey.
func NewStore(pool *pgxpool.Pool, tokenKey []byte) *Store {
	return &Store{pool: pool, tokenKey: tokenKey}
}

// --- Locations ---

const locationColumns = `id, name, address, phone, platform_ids, created_at, updated_at`

func scanLocation(row scannable) (review.Location, error) {
	var (
		l   review.Location
		ids []byte
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Address, &l.Phone, &ids, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return l, err
	}
	if len(ids) > 0 {
		if err := json.Unmarshal(ids, &l.PlatformIDs); err != nil {
			return l, fmt.Errorf("unmarshal platform ids: %w", err)
		}
	}
	return l, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]review.Location, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []review.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) GetLocation(ctx context.Context, id string) (*review.Location, error) {
	l, err := scanLocation(s.pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get location %s", id)
	}
	return &l, nil
}

func (s *Store) CreateLocation(ctx context.Context, l *review.Location) error {
	ids, err := json.Marshal(orEmptyMap(l.PlatformIDs))
	if err != nil {
		return fmt.Errorf("marshal platform ids: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO locations (id, name, address, phone, platform_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.Name, l.Address, l.Phone, ids, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

func orEmptyMap(m map[review.Platform]string) map[review.Platform]string {
	if m == nil {
		return map[review.Platform]string{}
	}
	return m
}
