package historydb

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/RomanDevelop/alien-manager/common"
)

const (
	DefaultCSVPath = "history.csv"
	TimeFormat     = "2006-01-02 15:04:05"
)

var csvHeader = []string{"timestamp", "action", "tx_hash", "amount", "address", "status"}

// CSVFile keeps the action history in a CSV file. Times are stored in UTC.
type CSVFile struct {
	path    string
	timeNow func() time.Time

	mu sync.Mutex
}

func NewCSVFile(path string) *CSVFile {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVFile{path: path, timeNow: time.Now}
}

func (f *CSVFile) Path() string {
	return f.path
}

func (f *CSVFile) LogAction(ctx context.Context, action common.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if action.Time.IsZero() {
		action.Time = f.timeNow()
	}
	needHeader := false
	if st, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) || (err == nil && st.Size() == 0) {
		needHeader = true
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	w := csv.NewWriter(file)
	if needHeader {
		if err := w.Write(csvHeader); err != nil {
			file.Close()
			return fmt.Errorf("write history header: %w", err)
		}
	}
	if err := w.Write([]string{
		action.Time.UTC().Format(TimeFormat),
		action.Action,
		action.TxHash,
		action.Amount,
		action.Address,
		action.Status,
	}); err != nil {
		file.Close()
		return fmt.Errorf("write history record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("flush history: %w", err)
	}
	return file.Close()
}

func (f *CSVFile) readAll() ([]common.Action, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()
	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)
	var actions []common.Action
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		if first {
			first = false
			if record[0] == csvHeader[0] {
				continue
			}
		}
		t, err := time.ParseInLocation(TimeFormat, record[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad history timestamp %q: %w", record[0], err)
		}
		actions = append(actions, common.Action{
			Time:    t,
			Action:  record[1],
			TxHash:  record[2],
			Amount:  record[3],
			Address: record[4],
			Status:  record[5],
		})
	}
	return actions, nil
}

// Actions returns the last limit records from oldest to newest. Zero limit
// means all records.
func (f *CSVFile) Actions(ctx context.Context, limit int) ([]common.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions, err := f.readAll()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(actions) > limit {
		actions = actions[len(actions)-limit:]
	}
	return actions, nil
}

func (f *CSVFile) Statistics(ctx context.Context) (common.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions, err := f.readAll()
	if err != nil {
		return common.Statistics{}, err
	}
	return common.ComputeStatistics(actions), nil
}

// Clear removes all records and leaves the header.
func (f *CSVFile) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("truncate history file: %w", err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		file.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (f *CSVFile) Close() error {
	return nil
}
