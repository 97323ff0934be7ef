package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitStorage_Memory(t *testing.T) {
	logger := log.WithField("component", "test")

	bundle, err := initStorage(context.Background(), Config{StorageDriver: StorageDriverMemory}, logger)
	if err != nil {
		t.Fatalf("init memory storage: %v", err)
	}
	if bundle.items == nil || bundle.orders == nil || bundle.checkout == nil || bundle.idempotency == nil {
		t.Fatal("expected all repositories to be initialized")
	}
	if bundle.pg != nil {
		t.Fatal("memory storage must not open a postgres store")
	}
	bundle.close(logger)
}

func TestInitStorage_EmptyDriverDefaultsToMemory(t *testing.T) {
	logger := log.WithField("component", "test")

	bundle, err := initStorage(context.Background(), Config{}, logger)
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	if bundle.pg != nil {
		t.Fatal("empty driver must default to memory")
	}
}

func TestInitStorage_PostgresRequiresDSN(t *testing.T) {
	logger := log.WithField("component", "test")

	if _, err := initStorage(context.Background(), Config{StorageDriver: StorageDriverPostgres}, logger); err == nil {
		t.Fatal("expected error for postgres without DSN")
	}
}

func TestInitStorage_UnsupportedDriver(t *testing.T) {
	logger := log.WithField("component", "test")

	if _, err := initStorage(context.Background(), Config{StorageDriver: "sqlite"}, logger); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
