// Package experiment records training runs and per-epoch metrics in BigQuery.
// A nil *Writer is a valid sink that drops everything, so training keeps
// working when experiment tracking is not configured.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/shoppulse/recsys-backend/pkg/bigquery"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// Config controls the experiment writer behavior.
type Config struct {
	RunTable    string
	MetricTable string
	BatchSize   int
	RetryPolicy RetryPolicy
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Writer inserts run and metric rows into BigQuery with retries and
// optional batching of the high-volume epoch metrics.
type Writer struct {
	client      tableInserter
	runTable    string
	metricTable string
	batchSize   int
	retry       RetryPolicy

	metricBuffer []EpochMetricRow
}

// New creates a Writer backed by a shared BigQuery client.
func New(client *pkgbigquery.Client, cfg Config) (*Writer, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg Config) (*Writer, error) {
	runTable := strings.TrimSpace(cfg.RunTable)
	if runTable == "" {
		return nil, errors.New("training run table is required")
	}
	metricTable := strings.TrimSpace(cfg.MetricTable)
	if metricTable == "" {
		return nil, errors.New("epoch metric table is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retry := cfg.RetryPolicy
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}

	return &Writer{
		client:      client,
		runTable:    runTable,
		metricTable: metricTable,
		batchSize:   batchSize,
		retry:       retry,
	}, nil
}

// RecordRun writes a run row immediately. Called once at run start and again
// on completion or failure; run rows are never buffered.
func (w *Writer) RecordRun(ctx context.Context, row RunRow) error {
	if w == nil {
		return nil
	}
	return w.insertWithRetry(ctx, w.runTable, []any{&row})
}

// RecordEpoch buffers an epoch metric row, flushing when the batch fills.
func (w *Writer) RecordEpoch(ctx context.Context, row EpochMetricRow) error {
	if w == nil {
		return nil
	}
	w.metricBuffer = append(w.metricBuffer, row)
	if len(w.metricBuffer) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes any buffered metric rows immediately.
func (w *Writer) Flush(ctx context.Context) error {
	if w == nil || len(w.metricBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.metricBuffer))
	for i := range w.metricBuffer {
		rows[i] = &w.metricBuffer[i]
	}

	if err := w.insertWithRetry(ctx, w.metricTable, rows); err != nil {
		return err
	}
	w.metricBuffer = w.metricBuffer[:0]
	return nil
}

func (w *Writer) insertWithRetry(ctx context.Context, table string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}

	attempts := 0
	backoff := w.retry.InitialBackoff

	for {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		timer.Stop()

		backoff = minDuration(backoff*2, w.retry.MaximumBackoff)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi *cbigquery.MultiError
	if errors.As(err, &multi) {
		if multi == nil || len(*multi) == 0 {
			return false
		}
		for _, inner := range *multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var pme *cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if pme == nil || len(*pme) == 0 {
			return false
		}
		for _, rowErr := range *pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var rowErr *cbigquery.RowInsertionError
	if errors.As(err, &rowErr) {
		if rowErr == nil || len(rowErr.Errors) == 0 {
			return false
		}
		for _, inner := range rowErr.Errors {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			return isRetryableGRPCCode(st.Code())
		}
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}
