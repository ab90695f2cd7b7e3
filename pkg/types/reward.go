package types

import "time"

// RewardEvent is one append-only ledger entry. The (pickup_id, event) pair is
// unique, so re-applying a credit is a no-op.
type RewardEvent struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	PickupID  string    `db:"pickup_id"`
	Event     string    `db:"event"`
	Points    int       `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}
