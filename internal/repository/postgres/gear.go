package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"
)

type gearRepository struct {
	db *sql.DB
}

func NewGearRepository(db *sql.DB) repository.GearRepository {
	return &gearRepository{db: db}
}

func (r *gearRepository) GetByID(ctx context.Context, id string) (*domain.Gear, error) {
	g := &domain.Gear{}
	query := `SELECT id, owner_id, title, daily_rate_cents, currency FROM gear WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.OwnerID, &g.Title, &g.DailyRateCents, &g.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("gear %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return g, nil
}
