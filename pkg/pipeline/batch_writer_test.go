package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func openTestTable(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	if _, err := conn.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return conn
}

func insert(val string) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO test (val) VALUES (?)", val)
		return err
	}
}

func countRows(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM test").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func TestBatchWriterTransactions(t *testing.T) {
	conn := openTestTable(t)

	bw := NewBatchWriter(conn, 2, 0)
	for _, v := range []string{"A", "B", "C"} {
		if err := bw.Submit(insert(v)); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	doneCh := make(chan error, 1)
	go func() { doneCh <- bw.Close() }()
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}

	if got := countRows(t, conn); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}
	if bw.Committed() != 3 {
		t.Fatalf("expected 3 committed writes, got %d", bw.Committed())
	}
}

func TestBatchWriterRollback(t *testing.T) {
	conn := openTestTable(t)

	bw := NewBatchWriter(conn, 2, 0)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) { errCh <- e }

	// Batch of 2: first succeeds, second fails. Whole batch rolls back.
	bw.Submit(insert("C"))
	bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		return fmt.Errorf("intentional error")
	})

	if err := bw.Close(); err == nil || !strings.Contains(err.Error(), "intentional") {
		t.Fatalf("expected Close to report the batch error, got %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	default:
		t.Fatal("expected OnError to be called")
	}

	if got := countRows(t, conn); got != 0 {
		t.Fatalf("expected 0 rows (rollback), got %d", got)
	}
	if bw.Committed() != 0 {
		t.Fatalf("expected no committed writes, got %d", bw.Committed())
	}
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	bw := NewBatchWriter(nil, 5, 0)
	var mu sync.Mutex
	called := 0
	for i := 0; i < 12; i++ {
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			mu.Lock()
			called++
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if called != 12 {
		t.Fatalf("expected 12 calls, got %d", called)
	}
}

func TestBatchWriterPreservesOrder(t *testing.T) {
	bw := NewBatchWriter(nil, 3, 0)
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			got = append(got, i)
			return nil
		})
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("write %d ran at position %d", v, i)
		}
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 writes, got %d", len(got))
	}
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	bw := NewBatchWriter(nil, 10, 20*time.Millisecond)
	flushed := make(chan struct{})
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(flushed)
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("expected the ticker to flush the pending write")
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBatchWriterSubmitAfterClose(t *testing.T) {
	bw := NewBatchWriter(nil, 1, 0)
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil }); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
	if err := bw.Close(); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed on second close, got %v", err)
	}
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	bw := NewBatchWriter(nil, 1, 0)
	errCh := make(chan error, 4)
	bw.OnError = func(e error) { errCh <- e }

	blocker := make(chan struct{})
	started := make(chan struct{})

	// First batch blocks the commit loop.
	bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(started)
		<-blocker
		return nil
	})
	<-started

	// Two more batches fill the queue.
	bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil })
	bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil })

	bw.cancel()

	// The queue is full and the writer is shut down, so this batch is dropped.
	bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil })

	close(blocker)

	select {
	case e := <-errCh:
		if e == nil || !strings.Contains(e.Error(), "dropping batch") {
			t.Fatalf("unexpected OnError value: %v", e)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected OnError to be called when batch dropped")
	}
	if err := bw.Close(); err == nil {
		t.Fatal("expected Close to report the dropped batch")
	}
}
