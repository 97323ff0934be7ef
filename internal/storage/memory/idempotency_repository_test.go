package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

func TestIdempotencyRepository_Lifecycle(t *testing.T) {
	repo := NewIdempotencyRepository()

	record, err := repo.CreateProcessing("ref-1", "hash-1", time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("expected processing, got %s", record.Status)
	}

	if _, err := repo.CreateProcessing("ref-1", "hash-1", time.Time{}); !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if _, err := repo.CreateProcessing("ref-1", "hash-other", time.Time{}); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}

	if err := repo.MarkDone("ref-1", []byte(`["order-1"]`)); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	record, err = repo.Get("ref-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != domain.IdempotencyStatusDone {
		t.Fatalf("expected done, got %s", record.Status)
	}
	if string(record.ResponseBody) != `["order-1"]` {
		t.Fatalf("unexpected response body: %s", record.ResponseBody)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound, got %v", err)
	}
}

func TestIdempotencyRepository_DeleteExpired(t *testing.T) {
	repo := NewIdempotencyRepository()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("old-1", "h", past); err != nil {
		t.Fatalf("create old-1: %v", err)
	}
	if _, err := repo.CreateProcessing("old-2", "h", past); err != nil {
		t.Fatalf("create old-2: %v", err)
	}
	if _, err := repo.CreateProcessing("fresh", "h", future); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	removed, err := repo.DeleteExpired(time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	if _, err := repo.Get("fresh"); err != nil {
		t.Fatalf("fresh record must survive: %v", err)
	}
}
