package historydb

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ActionRow struct {
	ID         int64
	ActionTime time.Time
	Action     string
	TxHash     string
	Amount     string
	Address    string
	Status     string
}

const insertAction = `
INSERT INTO actions (action_time, action, tx_hash, amount, address, status)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertActionParams struct {
	ActionTime time.Time
	Action     string
	TxHash     string
	Amount     string
	Address    string
	Status     string
}

func (q *Queries) InsertAction(ctx context.Context, arg InsertActionParams) error {
	_, err := q.db.ExecContext(ctx, insertAction,
		arg.ActionTime,
		arg.Action,
		arg.TxHash,
		arg.Amount,
		arg.Address,
		arg.Status,
	)
	return err
}

// Newest records first.
const selectLastActions = `
SELECT id, action_time, action, tx_hash, amount, address, status
FROM actions
ORDER BY id DESC
LIMIT $1
`

func (q *Queries) SelectLastActions(ctx context.Context, limit int32) ([]ActionRow, error) {
	rows, err := q.db.QueryContext(ctx, selectLastActions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ActionRow
	for rows.Next() {
		var i ActionRow
		if err := rows.Scan(
			&i.ID,
			&i.ActionTime,
			&i.Action,
			&i.TxHash,
			&i.Amount,
			&i.Address,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countActionsByType = `
SELECT action, COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'success') AS succeeded
FROM actions
GROUP BY action
`

type CountActionsByTypeRow struct {
	Action    string
	Total     int64
	Succeeded int64
}

func (q *Queries) CountActionsByType(ctx context.Context) ([]CountActionsByTypeRow, error) {
	rows, err := q.db.QueryContext(ctx, countActionsByType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountActionsByTypeRow
	for rows.Next() {
		var i CountActionsByTypeRow
		if err := rows.Scan(&i.Action, &i.Total, &i.Succeeded); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteActions = `
DELETE FROM actions
`

func (q *Queries) DeleteActions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteActions)
	return err
}
