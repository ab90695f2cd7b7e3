package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodsaver/internal/utils"
	"foodsaver/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pickupTableName = "foodsaver.pickups"

var pickupColumns = utils.StructTagValues(types.Pickup{})

type PickupRepository struct {
	pool *pgxpool.Pool
}

func NewPickupRepository(pool *pgxpool.Pool) *PickupRepository {
	return &PickupRepository{pool: pool}
}

func (r *PickupRepository) Pickup(ctx context.Context, pickupID string) (*types.Pickup, error) {
	return r.pickupWhere(ctx, sq.Eq{"id": pickupID})
}

func (r *PickupRepository) PickupByDonation(ctx context.Context, donationID string) (*types.Pickup, error) {
	return r.pickupWhere(ctx, sq.Eq{"donation_id": donationID})
}

func (r *PickupRepository) pickupWhere(ctx context.Context, pred sq.Eq) (*types.Pickup, error) {

	query, args, err := psql().Select(pickupColumns...).From(pickupTableName).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pickup query: %w", err)
	}

	var pickup = new(types.Pickup)
	err = pgxscan.Get(ctx, r.pool, pickup, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrPickupNotFound
	}

	return pickup, nil
}

// TasksByVolunteer lists the volunteer's pickups joined with the donation
// they transport, newest first.
func (r *PickupRepository) TasksByVolunteer(ctx context.Context, volunteerID string) ([]*types.PickupTask, error) {

	selected := make([]string, 0, len(pickupColumns)+4)
	for _, c := range pickupColumns {
		selected = append(selected, "p."+c)
	}
	selected = append(selected,
		"d.name AS donation_name",
		"d.status AS donation_status",
		"d.location_lat",
		"d.location_lng",
	)

	query, args, err := psql().Select(selected...).
		From(pickupTableName + " p").
		Join(donationTableName + " d ON d.id = p.donation_id").
		Where(sq.Eq{"p.volunteer_id": volunteerID}).
		OrderBy("p.accepted_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate volunteer tasks query: %w", err)
	}

	var tasks = make([]*types.PickupTask, 0)
	err = pgxscan.Select(ctx, r.pool, &tasks, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteer tasks: %w", err)
	}

	return tasks, nil
}

// AssignVolunteer sets the volunteer only while the slot is empty; losing a
// concurrent accept reports false.
func (r *PickupRepository) AssignVolunteer(ctx context.Context, pickupID, volunteerID string) (bool, error) {

	query, args, err := psql().Update(pickupTableName).
		Set("volunteer_id", volunteerID).
		Where(sq.Eq{"id": pickupID}).
		Where("volunteer_id IS NULL").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate assign volunteer query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to assign volunteer to pickup %s: %w", pickupID, err)
	}

	return tag.RowsAffected() > 0, nil
}

// ConfirmPickup stamps picked_up_at and moves the donation to picked_up in
// one transaction. The WHERE predicates are the compare-and-set.
func (r *PickupRepository) ConfirmPickup(ctx context.Context, pickupID, volunteerID string, at time.Time) (bool, error) {
	return r.confirm(ctx, confirmSpec{
		pickupID:    pickupID,
		volunteerID: volunteerID,
		setColumn:   "picked_up_at",
		at:          at,
		pickupPred:  "picked_up_at IS NULL",
		fromStatus:  types.DonationStatusAccepted,
		toStatus:    types.DonationStatusPickedUp,
	})
}

// ConfirmDelivery stamps delivered_at and moves the donation to delivered in
// one transaction, only after the pickup was confirmed.
func (r *PickupRepository) ConfirmDelivery(ctx context.Context, pickupID, volunteerID string, at time.Time) (bool, error) {
	return r.confirm(ctx, confirmSpec{
		pickupID:    pickupID,
		volunteerID: volunteerID,
		setColumn:   "delivered_at",
		at:          at,
		pickupPred:  "picked_up_at IS NOT NULL AND delivered_at IS NULL",
		fromStatus:  types.DonationStatusPickedUp,
		toStatus:    types.DonationStatusDelivered,
	})
}

type confirmSpec struct {
	pickupID    string
	volunteerID string
	setColumn   string
	at          time.Time
	pickupPred  string
	fromStatus  types.DonationStatus
	toStatus    types.DonationStatus
}

func (r *PickupRepository) confirm(ctx context.Context, spec confirmSpec) (bool, error) {

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to begin confirm transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql().Update(pickupTableName).
		Set(spec.setColumn, spec.at).
		Where(sq.Eq{"id": spec.pickupID, "volunteer_id": spec.volunteerID}).
		Where(spec.pickupPred).
		Suffix("RETURNING donation_id").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate confirm pickup query: %w", err)
	}

	var donationID string
	err = tx.QueryRow(ctx, query, args...).Scan(&donationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stamp pickup %s: %w", spec.pickupID, err)
	}

	query, args, err = psql().Update(donationTableName).
		Set("status", spec.toStatus).
		Set("updated_at", spec.at).
		Where(sq.Eq{"id": donationID, "status": spec.fromStatus}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate confirm status query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update donation %s: %w", donationID, err)
	}

	// The donation must have been in the expected state; otherwise the two
	// views would drift, so abort the whole confirmation.
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit confirm transaction: %w", err)
	}

	return true, nil
}
