package experiment

import (
	"context"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	pkgbigquery "github.com/shoppulse/recsys-backend/pkg/bigquery"
)

type insertCall struct {
	table string
	rows  []any
}

type fakeInserter struct {
	calls     []insertCall
	responses []error
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rows: rows})
	if len(f.responses) == 0 {
		return nil
	}
	err := f.responses[0]
	f.responses = f.responses[1:]
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*Writer, *fakeInserter) {
	t.Helper()

	fake := &fakeInserter{}
	writer, err := newWriter(fake, Config{
		RunTable:    "training_runs",
		MetricTable: "training_epoch_metrics",
		RetryPolicy: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error creating writer: %v", err)
	}
	return writer, fake
}

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{RunTable: " ", MetricTable: "metrics"}); err == nil {
		t.Fatal("expected error when run table missing")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{RunTable: "runs", MetricTable: " "}); err == nil {
		t.Fatal("expected error when metric table missing")
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.RecordEpoch(context.Background(), EpochMetricRow{RunID: "r1", Epoch: 1}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != writer.metricTable {
		t.Fatalf("expected metric table on retry, got %s", fake.calls[1].table)
	}
	if len(writer.metricBuffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterDoesNotRetryPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusBadRequest},
	}

	if err := writer.RecordRun(context.Background(), RunRow{RunID: "r1"}); err == nil {
		t.Fatal("expected permanent error to surface")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single insert attempt, got %d", len(fake.calls))
	}
}

func TestWriterBatchesEpochMetrics(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.RecordEpoch(context.Background(), EpochMetricRow{RunID: "r1", Epoch: 1}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatal("expected first row to stay buffered")
	}

	if err := writer.RecordEpoch(context.Background(), EpochMetricRow{RunID: "r1", Epoch: 2}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single flush, got %d calls", len(fake.calls))
	}
	if len(fake.calls[0].rows) != 2 {
		t.Fatalf("expected two rows in flush, got %d", len(fake.calls[0].rows))
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var writer *Writer

	if err := writer.RecordRun(context.Background(), RunRow{}); err != nil {
		t.Fatalf("nil writer RecordRun: %v", err)
	}
	if err := writer.RecordEpoch(context.Background(), EpochMetricRow{}); err != nil {
		t.Fatalf("nil writer RecordEpoch: %v", err)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("nil writer Flush: %v", err)
	}
}
