package store

import (
	"context"
	"fmt"
	"time"

	"foodsaver/internal/utils"
	"foodsaver/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rewardEventTableName = "foodsaver.reward_events"

var rewardEventColumns = utils.StructTagValues(types.RewardEvent{})

type RewardRepository struct {
	pool *pgxpool.Pool
}

func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// Credit appends a ledger entry and bumps the user's balance in one
// transaction. The unique (pickup_id, event) pair makes re-application a
// no-op: the insert hits the conflict, nothing is credited, and false is
// returned.
func (r *RewardRepository) Credit(ctx context.Context, userID, pickupID, event string, points int) (bool, error) {

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	entry := &types.RewardEvent{
		ID:        utils.NanoID(),
		UserID:    userID,
		PickupID:  pickupID,
		Event:     event,
		Points:    points,
		CreatedAt: time.Now(),
	}

	query, args, err := psql().Insert(rewardEventTableName).
		SetMap(utils.StructToMap(entry)).
		Suffix("ON CONFLICT (pickup_id, event) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate reward event query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to append reward event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	query, args, err = psql().Update(userTableName).
		Set("reward_points", sq.Expr("reward_points + ?", points)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate reward balance query: %w", err)
	}

	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return false, fmt.Errorf("failed to update reward balance for user %s: %w", userID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit credit transaction: %w", err)
	}

	return true, nil
}

// EventsByUser lists a volunteer's credit history, newest first.
func (r *RewardRepository) EventsByUser(ctx context.Context, userID string) ([]*types.RewardEvent, error) {

	query, args, err := psql().Select(rewardEventColumns...).From(rewardEventTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reward events query: %w", err)
	}

	var events = make([]*types.RewardEvent, 0)
	err = pgxscan.Select(ctx, r.pool, &events, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reward events: %w", err)
	}

	return events, nil
}
