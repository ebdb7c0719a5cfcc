package river_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"

	_ "modernc.org/sqlite"

	riveradapter "github.com/neomorfeo/gemdesk/internal/adapter/river"
	"github.com/neomorfeo/gemdesk/internal/adapter/sqlite"
	"github.com/neomorfeo/gemdesk/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/river_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	return db
}

func setupClient(t *testing.T, db *sql.DB) *riveradapter.Client {
	t.Helper()

	client, err := riveradapter.Setup(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}

	return client
}

func startClient(t *testing.T, client *riveradapter.Client) {
	t.Helper()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func TestOutbox_CommitStatus_EnqueuesJob(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db)
	ctx := context.Background()

	repo, err := sqlite.NewFromDB(db, sqlite.WithOutbox(riveradapter.NewOutbox(client)))
	if err != nil {
		t.Fatalf("creating repo: %v", err)
	}

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	order := domain.NewOrder("o-42", "Ada", "ada@example.com", 99000, "EUR", "checkout")
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	e := domain.HistoryEntry{
		Status:    domain.StatusConfirmed,
		ChangedAt: time.Now().UTC(),
		ChangedBy: "alice",
		Note:      "paid",
	}
	if _, err := repo.CommitStatus(ctx, "o-42", domain.StatusPending, e); err != nil {
		t.Fatalf("CommitStatus failed: %v", err)
	}

	select {
	case event := <-subscribeChan:
		if event.Job.Kind != "order.status_changed" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "order.status_changed")
		}
		// The args are stored as JSON; verify key fields are present.
		args := string(event.Job.EncodedArgs)
		for _, want := range []string{`"order_id":"o-42"`, `"from":"pending"`, `"to":"confirmed"`, `"actor":"alice"`, `"note":"paid"`} {
			if !strings.Contains(args, want) {
				t.Errorf("encoded args missing %s, got: %s", want, args)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestOutbox_RolledBackTransaction_LeavesNoJob(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db)
	ctx := context.Background()

	outbox := riveradapter.NewOutbox(client)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	change := domain.StatusChange{
		OrderID: "o-1",
		From:    domain.StatusPending,
		To:      domain.StatusCancelled,
		Actor:   "alice",
		At:      time.Now().UTC(),
	}
	if err := outbox.EnqueueTx(ctx, tx, change); err != nil {
		t.Fatalf("EnqueueTx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	res, err := client.JobList(ctx, goriver.NewJobListParams())
	if err != nil {
		t.Fatalf("JobList failed: %v", err)
	}
	if len(res.Jobs) != 0 {
		t.Errorf("got %d jobs after rollback, want 0", len(res.Jobs))
	}
}
