package store

import (
	"context"
	"fmt"
	"time"

	"foodsaver/internal/utils"
	"foodsaver/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "foodsaver.users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {

	query, args, err := psql().Select(userColumns...).From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user = new(types.User)
	err = pgxscan.Get(ctx, r.pool, user, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrUserNotFound
	}

	return user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *types.User) error {

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	userMap := utils.StructToMap(user)

	query, args, err := psql().Insert(userTableName).SetMap(userMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create user")

}

// UpdateLocation stores the caller's last reported coordinates.
func (r *UserRepository) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {

	query, args, err := psql().Update(userTableName).
		Set("location_lat", lat).
		Set("location_lng", lng).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update location query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update user location")

}

func (r *UserRepository) SetFraudFlag(ctx context.Context, userID string, flagged bool) error {

	query, args, err := psql().Update(userTableName).
		Set("is_fraudulent", flagged).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate fraud flag query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update fraud flag")

}

func (r *UserRepository) RecentUsers(ctx context.Context, limit uint64) ([]*types.User, error) {

	query, args, err := psql().Select(userColumns...).From(userTableName).
		OrderBy("created_at desc").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate recent users query: %w", err)
	}

	var users = make([]*types.User, 0)
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) CountUsers(ctx context.Context) (int64, error) {

	query, args, err := psql().Select("count(*)").From(userTableName).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate user count query: %w", err)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}
