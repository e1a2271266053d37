package cache

import (
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestRedisStoreGetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:")

	mock.ExpectGet("test:mykey").SetVal("myvalue")

	val, ok := store.Get("mykey")
	if !ok {
		t.Error("Expected cache hit")
	}
	if val != "myvalue" {
		t.Errorf("Expected 'myvalue', got %q", val)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStoreGetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:")

	mock.ExpectGet("test:mykey").RedisNil()

	val, ok := store.Get("mykey")
	if ok {
		t.Error("Expected cache miss")
	}
	if val != "" {
		t.Errorf("Expected empty string, got %q", val)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStorePut(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:")

	mock.ExpectSet("test:mykey", "myvalue", 3600*time.Second).SetVal("OK")

	if err := store.Put("mykey", "myvalue", 3600*time.Second); err != nil {
		t.Errorf("Put failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStorePutNoTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:")

	mock.ExpectSet("test:mykey", "myvalue", 0).SetVal("OK")

	if err := store.Put("mykey", "myvalue", 0); err != nil {
		t.Errorf("Put failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStoreDefaultKeyPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "")

	mock.ExpectGet("deeplx:EN:DE:Hello").SetVal("cached")

	val, ok := store.Get("EN:DE:Hello")
	if !ok || val != "cached" {
		t.Errorf("Expected 'cached', got %q (ok=%v)", val, ok)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
