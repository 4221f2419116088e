package writer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/scentdrive/campaign-backend/internal/analytics"
)

type insertCall struct {
	table string
	rows  int
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rows: len(rows)})
	if len(f.responses) == 0 {
		return nil
	}
	err := f.responses[0]
	f.responses = f.responses[1:]
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	w, err := New(fake, Config{
		Table: "campaign_events",
		RetryPolicy: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	return w, fake
}

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{Table: "t"}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := New(&fakeInserter{}, Config{Table: " "}); err == nil {
		t.Fatal("expected error when table missing")
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	w, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != "campaign_events" {
		t.Fatalf("unexpected table %s", fake.calls[1].table)
	}
	if len(w.buffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	w, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "1"}); err == nil {
		t.Fatal("expected error")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.calls))
	}
}

func TestWriterGivesUpAfterMaxAttempts(t *testing.T) {
	w, fake := newWriterWithFakeInserter(t)
	unavailable := status.Error(codes.Unavailable, "down")
	fake.responses = []error{unavailable, unavailable, unavailable, unavailable}

	err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fake.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(fake.calls))
	}
}

func TestWriterBatching(t *testing.T) {
	w, fake := newWriterWithFakeInserter(t)
	w.batchSize = 2

	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "1"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatal("expected no flush before batch is full")
	}
	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "2"}); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0].rows != 2 {
		t.Fatalf("expected one call with two rows, got %+v", fake.calls)
	}

	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "3"}); err != nil {
		t.Fatalf("third insert: %v", err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(fake.calls) != 2 || fake.calls[1].rows != 1 {
		t.Fatalf("expected flush to write remaining row, got %+v", fake.calls)
	}
}

func TestWriterKeepsAckedRowsWhenBatchFlushFails(t *testing.T) {
	w, fake := newWriterWithFakeInserter(t)
	w.batchSize = 2
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "a"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "b"}); err == nil {
		t.Fatal("expected flush error")
	}
	if len(w.buffer) != 1 || w.buffer[0].EventID != "a" {
		t.Fatalf("expected only the earlier row to stay buffered, got %+v", w.buffer)
	}

	// redelivery of the failed message
	if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: "b"}); err != nil {
		t.Fatalf("redelivered insert: %v", err)
	}
	if len(fake.calls) != 2 || fake.calls[1].rows != 2 {
		t.Fatalf("expected the retry to carry both rows, got %+v", fake.calls)
	}
	if len(w.buffer) != 0 {
		t.Fatalf("expected empty buffer after success, got %d rows", len(w.buffer))
	}
}

func TestWriterFlushFailureKeepsRows(t *testing.T) {
	w, fake := newWriterWithFakeInserter(t)
	w.batchSize = 5
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	for _, id := range []string{"1", "2"} {
		if err := w.InsertCampaignEvent(context.Background(), analytics.CampaignEventRow{EventID: id}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := w.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}
	if len(w.buffer) != 2 {
		t.Fatalf("expected rows to survive a failed flush, got %d", len(w.buffer))
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if len(w.buffer) != 0 || fake.calls[len(fake.calls)-1].rows != 2 {
		t.Fatalf("expected second flush to write both rows, got %+v", fake.calls)
	}
}

func TestIsRetryableBigQueryError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"http 400", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"grpc unavailable", status.Error(codes.Unavailable, "x"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "x"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableBigQueryError(tc.err); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
