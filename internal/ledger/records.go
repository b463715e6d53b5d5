package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slate/internal/runstate"
)

// ErrNotFound is returned when no ledger record matches the query.
var ErrNotFound = errors.New("run not found")

// Record is one run's row in the ledger.
type Record struct {
	ID           int64
	RunID        string
	PipelineID   string
	SampleID     string
	ScriptPath   string
	Status       runstate.Status
	ErrorMessage string
	VideoPath    string
	QAVerdict    string
	QAScore      float64
	DurationMS   int64
	WarningCount int
	SummaryPath  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// FinishUpdate carries the terminal fields RecordFinish writes.
type FinishUpdate struct {
	Status       runstate.Status
	ErrorMessage string
	VideoPath    string
	QAVerdict    string
	QAScore      float64
	DurationMS   int64
	WarningCount int
	SummaryPath  string
}

const recordColumns = "id, run_id, pipeline_id, sample_id, script_path, status, error_message, video_path, qa_verdict, qa_score, duration_ms, warning_count, summary_path, created_at, updated_at, finished_at"

// RecordStart inserts a running row for a run that just began.
func (s *Store) RecordStart(ctx context.Context, runID, pipelineID, sampleID, scriptPath string) (*Record, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            run_id, pipeline_id, sample_id, script_path, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID,
		pipelineID,
		nullableString(sampleID),
		nullableString(scriptPath),
		string(runstate.StatusRunning),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.Get(ctx, runID)
}

// RecordFinish stamps the terminal fields on a run's row.
func (s *Store) RecordFinish(ctx context.Context, runID string, update FinishUpdate) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET
            status = ?, error_message = ?, video_path = ?, qa_verdict = ?,
            qa_score = ?, duration_ms = ?, warning_count = ?, summary_path = ?,
            updated_at = ?, finished_at = ?
        WHERE run_id = ?`,
		string(update.Status),
		nullableString(update.ErrorMessage),
		nullableString(update.VideoPath),
		nullableString(update.QAVerdict),
		update.QAScore,
		update.DurationMS,
		update.WarningCount,
		nullableString(update.SummaryPath),
		now,
		now,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// ArtifactUpdate carries the artifact fields RecordArtifacts writes.
type ArtifactUpdate struct {
	VideoPath string
	QAVerdict string
	QAScore   float64
}

// RecordArtifacts stamps artifact fields on a still-running row so they
// survive even when the run never reaches a clean finish.
func (s *Store) RecordArtifacts(ctx context.Context, runID string, update ArtifactUpdate) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET
            video_path = ?, qa_verdict = ?, qa_score = ?, updated_at = ?
        WHERE run_id = ?`,
		nullableString(update.VideoPath),
		nullableString(update.QAVerdict),
		update.QAScore,
		now,
		runID,
	)
	if err != nil {
		return fmt.Errorf("record artifacts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record artifacts rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record artifacts %s: %w", runID, ErrNotFound)
	}
	return nil
}

// Get returns the record for runID.
func (s *Store) Get(ctx context.Context, runID string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM runs WHERE run_id = ?", runID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return record, nil
}

// List returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + recordColumns + " FROM runs ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// Latest returns the most recent run, or ErrNotFound when the ledger is
// empty.
func (s *Store) Latest(ctx context.Context) (*Record, error) {
	records, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		runID        string
		pipelineID   string
		sampleID     sql.NullString
		scriptPath   sql.NullString
		statusStr    string
		errorMessage sql.NullString
		videoPath    sql.NullString
		qaVerdict    sql.NullString
		qaScore      sql.NullFloat64
		durationMS   sql.NullInt64
		warningCount sql.NullInt64
		summaryPath  sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		finishedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&pipelineID,
		&sampleID,
		&scriptPath,
		&statusStr,
		&errorMessage,
		&videoPath,
		&qaVerdict,
		&qaScore,
		&durationMS,
		&warningCount,
		&summaryPath,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		RunID:        runID,
		PipelineID:   pipelineID,
		SampleID:     sampleID.String,
		ScriptPath:   scriptPath.String,
		Status:       runstate.Status(statusStr),
		ErrorMessage: errorMessage.String,
		VideoPath:    videoPath.String,
		QAVerdict:    qaVerdict.String,
		QAScore:      qaScore.Float64,
		DurationMS:   durationMS.Int64,
		WarningCount: int(warningCount.Int64),
		SummaryPath:  summaryPath.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			record.FinishedAt = &finished
		}
	}
	return record, nil
}
