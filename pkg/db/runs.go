package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one recorded command invocation.
type Run struct {
	RunID        int64
	Command      string
	Args         []string
	Status       string
	ErrorCode    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// OffsetRecord is an offset derived during a run.
type OffsetRecord struct {
	Reference string
	Document  string
	Page      int
	DX, DY    float64
}

// TransferRecord summarises one page transfer of a run.
type TransferRecord struct {
	Source     string
	SourcePage int
	Target     string
	TargetPage int
	Selected   int
	Positioned int
	Relabelled int
}

// StartRun records the start of a command and returns its run id.
func (db *DB) StartRun(command string, args []string) (int64, error) {
	if args == nil {
		args = []string{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("failed to encode run args: %w", err)
	}
	result, err := db.Exec(`
		INSERT INTO runs (command, args, status, started_at)
		VALUES (?, ?, ?, ?)
	`, command, string(encoded), StatusRunning, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun marks a run succeeded when runErr is nil, failed otherwise.
func (db *DB) FinishRun(runID int64, runErr error) error {
	status := StatusSucceeded
	var code, message sql.NullString
	if runErr != nil {
		status = StatusFailed
		message = sql.NullString{String: runErr.Error(), Valid: true}
		if c := syncerr.CodeOf(runErr); c != "" {
			code = sql.NullString{String: string(c), Valid: true}
		}
	}
	result, err := db.Exec(`
		UPDATE runs SET status = ?, error_code = ?, error_message = ?, finished_at = ?
		WHERE run_id = ?
	`, status, code, message, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// RecordOffset stores an offset derived during a run.
func (db *DB) RecordOffset(runID int64, o OffsetRecord) error {
	_, err := db.Exec(`
		INSERT INTO offsets (run_id, reference, document, page, dx, dy)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, o.Reference, o.Document, o.Page, o.DX, o.DY)
	if err != nil {
		return fmt.Errorf("failed to insert offset: %w", err)
	}
	return nil
}

// RecordTransfer stores the outcome of one page transfer.
func (db *DB) RecordTransfer(runID int64, t TransferRecord) error {
	_, err := db.Exec(`
		INSERT INTO transfers (run_id, source, source_page, target, target_page, selected, positioned, relabelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, t.Source, t.SourcePage, t.Target, t.TargetPage, t.Selected, t.Positioned, t.Relabelled)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of 0 or less returns
// every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT run_id, command, args, status, error_code, error_message, started_at, finished_at
		FROM runs
		ORDER BY run_id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by id.
func (db *DB) GetRun(runID int64) (Run, error) {
	row := db.QueryRow(`
		SELECT run_id, command, args, status, error_code, error_message, started_at, finished_at
		FROM runs
		WHERE run_id = ?
	`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d not found", runID)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var encoded string
	var code, message sql.NullString
	var finished sql.NullTime
	if err := row.Scan(&r.RunID, &r.Command, &encoded, &r.Status, &code, &message, &r.StartedAt, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &r.Args); err != nil {
		return Run{}, fmt.Errorf("failed to decode args of run %d: %w", r.RunID, err)
	}
	r.ErrorCode = code.String
	r.ErrorMessage = message.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// GetRunOffsets returns the offsets of a run in insertion order.
func (db *DB) GetRunOffsets(runID int64) ([]OffsetRecord, error) {
	rows, err := db.Query(`
		SELECT reference, document, page, dx, dy
		FROM offsets
		WHERE run_id = ?
		ORDER BY offset_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query offsets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var offsets []OffsetRecord
	for rows.Next() {
		var o OffsetRecord
		if err := rows.Scan(&o.Reference, &o.Document, &o.Page, &o.DX, &o.DY); err != nil {
			return nil, fmt.Errorf("failed to scan offset: %w", err)
		}
		offsets = append(offsets, o)
	}
	return offsets, rows.Err()
}

// GetRunTransfers returns the transfers of a run in insertion order.
func (db *DB) GetRunTransfers(runID int64) ([]TransferRecord, error) {
	rows, err := db.Query(`
		SELECT source, source_page, target, target_page, selected, positioned, relabelled
		FROM transfers
		WHERE run_id = ?
		ORDER BY transfer_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transfers []TransferRecord
	for rows.Next() {
		var t TransferRecord
		if err := rows.Scan(&t.Source, &t.SourcePage, &t.Target, &t.TargetPage, &t.Selected, &t.Positioned, &t.Relabelled); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
