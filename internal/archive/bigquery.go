package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	runsTable    = "extraction_runs"
	outputsTable = "model_outputs"

	parserType    = "GEMINI_STRUCTURED"
	parserVersion = "v1"
)

// BigQuery is the Sink backed by a BigQuery dataset. Rows are written with
// DML inserts so they are immediately visible to queries.
type BigQuery struct {
	client  *bigquery.Client
	project string
	dataset string
}

var _ Sink = (*BigQuery)(nil)

// NewBigQuery builds a sink around a shared BigQuery client. Assumes
// Application Default Credentials.
func NewBigQuery(ctx context.Context, projectID, dataset string) (*BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuery: creating client: %w", err)
	}
	return &BigQuery{client: client, project: projectID, dataset: dataset}, nil
}

// Close releases the underlying BigQuery client.
func (b *BigQuery) Close() error {
	return b.client.Close()
}

func (b *BigQuery) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", b.project, b.dataset, name)
}

func (b *BigQuery) run(ctx context.Context, op string, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}

func (b *BigQuery) StartRun(ctx context.Context, uploadID, userID string) (string, error) {
	runID := uuid.NewString()

	q := b.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			run_id, upload_id, user_id,
			parser_type, parser_version,
			status, started_ts
		)
		VALUES (
			@run_id, @upload_id, @user_id,
			@parser_type, @parser_version,
			@status, @started_ts
		)
	`, b.table(runsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "upload_id", Value: uploadID},
		{Name: "user_id", Value: userID},
		{Name: "parser_type", Value: parserType},
		{Name: "parser_version", Value: parserVersion},
		{Name: "status", Value: RunStatusRunning},
		{Name: "started_ts", Value: time.Now()},
	}

	if err := b.run(ctx, "StartRun", q); err != nil {
		return "", err
	}
	return runID, nil
}

func (b *BigQuery) StoreOutput(ctx context.Context, runID, uploadID string, raw json.RawMessage) error {
	q := b.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			output_id, run_id, upload_id,
			model_name, raw_json, created_ts
		)
		VALUES (
			@output_id, @run_id, @upload_id,
			@model_name, @raw_json, @created_ts
		)
	`, b.table(outputsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: uuid.NewString()},
		{Name: "run_id", Value: runID},
		{Name: "upload_id", Value: uploadID},
		{Name: "model_name", Value: parserType},
		{Name: "raw_json", Value: bigquery.NullJSON{JSONVal: string(raw), Valid: len(raw) > 0}},
		{Name: "created_ts", Value: time.Now()},
	}

	return b.run(ctx, "StoreOutput", q)
}

func (b *BigQuery) FinishRun(ctx context.Context, runID, status, message string) error {
	q := b.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, b.table(runsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateMessage(message)},
		{Name: "run_id", Value: runID},
	}

	return b.run(ctx, "FinishRun", q)
}

// runRow is the BigQuery row shape for extraction_runs.
type runRow struct {
	RunID         string                 `bigquery:"run_id"`
	UploadID      string                 `bigquery:"upload_id"`
	UserID        string                 `bigquery:"user_id"`
	ParserType    string                 `bigquery:"parser_type"`
	ParserVersion string                 `bigquery:"parser_version"`
	Status        string                 `bigquery:"status"`
	ErrorMessage  bigquery.NullString    `bigquery:"error_message"`
	StartedAt     time.Time              `bigquery:"started_ts"`
	FinishedAt    bigquery.NullTimestamp `bigquery:"finished_ts"`
}

func (b *BigQuery) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	q := b.client.Query(fmt.Sprintf(`
		SELECT
			run_id, upload_id, user_id,
			parser_type, parser_version,
			status, error_message,
			started_ts, finished_ts
		FROM %s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, b.table(runsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("RecentRuns: reading query: %w", err)
	}

	var runs []*Run
	for {
		var row runRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("RecentRuns: iterating: %w", err)
		}

		run := &Run{
			RunID:         row.RunID,
			UploadID:      row.UploadID,
			UserID:        row.UserID,
			ParserType:    row.ParserType,
			ParserVersion: row.ParserVersion,
			Status:        row.Status,
			StartedAt:     row.StartedAt,
		}
		if row.ErrorMessage.Valid {
			run.ErrorMessage = row.ErrorMessage.StringVal
		}
		if row.FinishedAt.Valid {
			finished := row.FinishedAt.Timestamp
			run.FinishedAt = &finished
		}
		runs = append(runs, run)
	}

	return runs, nil
}
