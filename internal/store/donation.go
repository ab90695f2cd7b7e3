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

const donationTableName = "foodsaver.donations"

var donationColumns = utils.StructTagValues(types.Donation{})

type DonationRepository struct {
	pool *pgxpool.Pool
}

func NewDonationRepository(pool *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{pool: pool}
}

func (r *DonationRepository) Donation(ctx context.Context, donationID string) (*types.Donation, error) {

	query, args, err := psql().Select(donationColumns...).From(donationTableName).
		Where(sq.Eq{"id": donationID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donation query: %w", err)
	}

	var donation = new(types.Donation)
	err = pgxscan.Get(ctx, r.pool, donation, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrDonationNotFound
	}

	return donation, nil
}

func (r *DonationRepository) CreateDonation(ctx context.Context, donation *types.Donation) error {

	now := time.Now()
	donation.ID = utils.NanoID()
	donation.CreatedAt = now
	donation.UpdatedAt = now

	donationMap := utils.StructToMap(donation)

	query, args, err := psql().Insert(donationTableName).SetMap(donationMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert donation query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create donation")

}

// ClaimDonation flips a pending donation to accepted and inserts its pickup
// in one transaction. The status predicate is the compare-and-set: when a
// concurrent claim got there first no row matches and nothing is written.
func (r *DonationRepository) ClaimDonation(ctx context.Context, donationID, ngoID string, claimedAt time.Time) (*types.Pickup, bool, error) {

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql().Update(donationTableName).
		Set("status", types.DonationStatusAccepted).
		Set("updated_at", claimedAt).
		Where(sq.Eq{"id": donationID, "status": types.DonationStatusPending}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate claim update query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update donation %s: %w", donationID, err)
	}

	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	pickup := &types.Pickup{
		ID:         utils.NanoID(),
		DonationID: donationID,
		NgoID:      ngoID,
		AcceptedAt: claimedAt,
	}

	query, args, err = psql().Insert(pickupTableName).SetMap(utils.StructToMap(pickup)).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate insert pickup query: %w", err)
	}

	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return nil, false, fmt.Errorf("failed to create pickup for donation %s: %w", donationID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	return pickup, true, nil
}

func (r *DonationRepository) PendingDonations(ctx context.Context) ([]*types.Donation, error) {
	return r.donationsWhere(ctx, sq.Eq{"status": types.DonationStatusPending}, 0)
}

func (r *DonationRepository) DonationsByDonor(ctx context.Context, donorID string) ([]*types.Donation, error) {
	return r.donationsWhere(ctx, sq.Eq{"donor_id": donorID}, 0)
}

func (r *DonationRepository) RecentDonations(ctx context.Context, limit uint64) ([]*types.Donation, error) {
	return r.donationsWhere(ctx, nil, limit)
}

func (r *DonationRepository) donationsWhere(ctx context.Context, pred any, limit uint64) ([]*types.Donation, error) {

	builder := psql().Select(donationColumns...).From(donationTableName).
		OrderBy("created_at desc")
	if pred != nil {
		builder = builder.Where(pred)
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donations query: %w", err)
	}

	var donations = make([]*types.Donation, 0)
	err = pgxscan.Select(ctx, r.pool, &donations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations: %w", err)
	}

	return donations, nil
}

// AcceptedWithoutVolunteer lists claimed donations whose pickup still needs a
// volunteer, for the volunteer dashboard.
func (r *DonationRepository) AcceptedWithoutVolunteer(ctx context.Context) ([]*types.Donation, error) {

	prefixed := make([]string, len(donationColumns))
	for i, c := range donationColumns {
		prefixed[i] = "d." + c
	}

	query, args, err := psql().Select(prefixed...).
		From(donationTableName + " d").
		Join(pickupTableName + " p ON p.donation_id = d.id").
		Where(sq.Eq{"d.status": types.DonationStatusAccepted}).
		Where("p.volunteer_id IS NULL").
		OrderBy("d.created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate unassigned donations query: %w", err)
	}

	var donations = make([]*types.Donation, 0)
	err = pgxscan.Select(ctx, r.pool, &donations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unassigned donations: %w", err)
	}

	return donations, nil
}

func (r *DonationRepository) CountDonations(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, nil)
}

func (r *DonationRepository) CountDonationsByStatus(ctx context.Context, status types.DonationStatus) (int64, error) {
	return r.countWhere(ctx, sq.Eq{"status": status})
}

func (r *DonationRepository) countWhere(ctx context.Context, pred any) (int64, error) {

	builder := psql().Select("count(*)").From(donationTableName)
	if pred != nil {
		builder = builder.Where(pred)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate donation count query: %w", err)
	}

	var count int64
	err = r.pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to count donations: %w", err)
	}

	return count, nil
}
