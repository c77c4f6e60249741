package audit

import (
	"database/sql"

	"github.com/sirupsen/logrus"
)

type Repository struct{}

type RepositoryInterface interface {
	Insert(tx *sql.Tx, e *Event) (int, error)
	GetByUserID(db *sql.DB, userID string) ([]*Event, error)
}

func NewRepository() RepositoryInterface {
	return &Repository{}
}

// Insert persists one audit event.
func (r *Repository) Insert(tx *sql.Tx, e *Event) (int, error) {
	query := `
		INSERT INTO audit_log (
			action, user_id, actor_id, detail, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int
	err := tx.QueryRow(
		query,
		e.Action,
		e.UserID,
		e.ActorID,
		e.Detail,
		e.OccurredAt,
	).Scan(&id)

	if err != nil {
		logrus.WithError(err).Error("Failed to insert audit event")
		return 0, err
	}

	return id, nil
}

// GetByUserID returns the audit trail for one user, newest first.
func (r *Repository) GetByUserID(db *sql.DB, userID string) ([]*Event, error) {
	query := `
		SELECT id, action, user_id, actor_id, detail, occurred_at
		FROM audit_log
		WHERE user_id = $1
		ORDER BY occurred_at DESC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		logrus.WithError(err).Error("Failed to query audit log")
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.ActorID, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
