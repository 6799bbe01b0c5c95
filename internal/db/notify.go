package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Notifier emits Postgres NOTIFY events when assessments are saved, so the
// appointment dashboard collaborator can refresh without polling.
type Notifier struct {
	DB      *sqlx.DB
	Channel string
}

// NewNotifier constructs a Notifier publishing on the given channel.
func NewNotifier(db *sqlx.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Notify publishes the assessment id on the channel. pg_notify is used
// because the NOTIFY statement itself does not accept bind parameters.
func (n *Notifier) Notify(ctx context.Context, assessmentID string) error {
	_, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, assessmentID)
	return err
}
