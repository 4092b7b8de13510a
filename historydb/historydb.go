// Package historydb stores the log of actions performed by the manager.
package historydb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/RomanDevelop/alien-manager/common"
)

//go:embed schema.sql
var schemaSql string

const dropActionsTable = `
DROP TABLE IF EXISTS actions
`

func handleErrorWithRollback(err error, tx *sql.Tx) error {
	if rollbackErr := tx.Rollback(); rollbackErr != nil {
		return rollbackErr
	}
	return err
}

func actionFromSql(row ActionRow) common.Action {
	return common.Action{
		Time:    row.ActionTime.UTC(),
		Action:  row.Action,
		TxHash:  row.TxHash,
		Amount:  row.Amount,
		Address: row.Address,
		Status:  row.Status,
	}
}

// PostgresDB keeps the action history in Postgres.
type PostgresDB struct {
	db *sql.DB
}

func NewDB(db *sql.DB) (*PostgresDB, error) {
	hdb := &PostgresDB{db: db}
	if err := hdb.CreateSchemas(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return hdb, nil
}

func (hdb *PostgresDB) CreateSchemas(ctx context.Context) error {
	lid := uuid.NewString()
	log.Printf("HistoryDB: CreateSchemas started (%s)\n", lid)
	defer log.Printf("HistoryDB: CreateSchemas exited (%s)\n", lid)
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSql); err != nil {
		return handleErrorWithRollback(fmt.Errorf("failed to create actions table: %w", err), tx)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (hdb *PostgresDB) DropSchemas(ctx context.Context) error {
	lid := uuid.NewString()
	log.Printf("HistoryDB: DropSchemas started (%s)\n", lid)
	defer log.Printf("HistoryDB: DropSchemas exited (%s)\n", lid)
	if _, err := hdb.db.ExecContext(ctx, dropActionsTable); err != nil {
		return fmt.Errorf("failed to drop actions table: %w", err)
	}
	return nil
}

func (hdb *PostgresDB) createDBObjects(ctx context.Context) (*sql.Tx, *Queries, error) {
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return tx, New(hdb.db).WithTx(tx), nil
}

type hdbMethod func(ctx context.Context, q *Queries) error

type txCommitError struct {
	msg string
}

func (txErr txCommitError) Error() string {
	return txErr.msg
}

func (hdb *PostgresDB) runRetryableTransaction(ctx context.Context, fn hdbMethod) error {
	return retry.Do(
		func() error {
			tx, q, err := hdb.createDBObjects(ctx)
			if err != nil {
				return fmt.Errorf("failed to create db objects: %w", err)
			}
			if err := fn(ctx, q); err != nil {
				return handleErrorWithRollback(err, tx)
			}
			if err := tx.Commit(); err != nil {
				return txCommitError{msg: err.Error()}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if errors.As(err, &txCommitError{}) {
				return true
			}
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "serialization_failure" {
				return true
			}
			return false
		}),
	)
}

func (hdb *PostgresDB) LogAction(ctx context.Context, action common.Action) error {
	lid := uuid.NewString()
	log.Printf("HistoryDB: LogAction started (%s)\n", lid)
	defer log.Printf("HistoryDB: LogAction exited (%s)\n", lid)
	if action.Time.IsZero() {
		action.Time = time.Now().UTC()
	}
	return hdb.runRetryableTransaction(ctx, func(innerCtx context.Context, q *Queries) error {
		if err := q.InsertAction(innerCtx, InsertActionParams{
			ActionTime: action.Time,
			Action:     action.Action,
			TxHash:     action.TxHash,
			Amount:     action.Amount,
			Address:    action.Address,
			Status:     action.Status,
		}); err != nil {
			return fmt.Errorf("failed to insert action: %w", err)
		}
		return nil
	})
}

// Actions returns the last limit records from oldest to newest. Zero limit
// means all records.
func (hdb *PostgresDB) Actions(ctx context.Context, limit int) ([]common.Action, error) {
	lid := uuid.NewString()
	log.Printf("HistoryDB: Actions started (%s)\n", lid)
	defer log.Printf("HistoryDB: Actions exited (%s)\n", lid)
	if limit <= 0 || limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	var actions []common.Action
	if err := hdb.runRetryableTransaction(ctx, func(innerCtx context.Context, q *Queries) error {
		rows, err := q.SelectLastActions(innerCtx, int32(limit))
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to select actions: %w", err)
		}
		actions = make([]common.Action, len(rows))
		for i, row := range rows {
			actions[len(rows)-1-i] = actionFromSql(row)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return actions, nil
}

func (hdb *PostgresDB) Statistics(ctx context.Context) (stats common.Statistics, err error) {
	lid := uuid.NewString()
	log.Printf("HistoryDB: Statistics started (%s)\n", lid)
	defer log.Printf("HistoryDB: Statistics exited (%s)\n", lid)
	if err = hdb.runRetryableTransaction(ctx, func(innerCtx context.Context, q *Queries) error {
		stats = common.Statistics{}
		counts, err := q.CountActionsByType(innerCtx)
		if err != nil {
			return fmt.Errorf("failed to count actions: %w", err)
		}
		if len(counts) == 0 {
			return nil
		}
		stats.ActionsByType = make(map[string]int, len(counts))
		var succeeded int64
		for _, c := range counts {
			stats.ActionsByType[c.Action] = int(c.Total)
			stats.TotalActions += int(c.Total)
			succeeded += c.Succeeded
		}
		stats.SuccessRate = float64(succeeded) / float64(stats.TotalActions) * 100
		last, err := q.SelectLastActions(innerCtx, 1)
		if err != nil {
			return fmt.Errorf("failed to select last action: %w", err)
		}
		if len(last) == 1 {
			stats.LastAction = last[0].Action
			stats.LastTimestamp = last[0].ActionTime.UTC()
		}
		return nil
	}); err != nil {
		return common.Statistics{}, err
	}
	return stats, nil
}

func (hdb *PostgresDB) Clear(ctx context.Context) error {
	lid := uuid.NewString()
	log.Printf("HistoryDB: Clear started (%s)\n", lid)
	defer log.Printf("HistoryDB: Clear exited (%s)\n", lid)
	return hdb.runRetryableTransaction(ctx, func(innerCtx context.Context, q *Queries) error {
		return q.DeleteActions(innerCtx)
	})
}

func (hdb *PostgresDB) Close() error {
	return hdb.db.Close()
}
