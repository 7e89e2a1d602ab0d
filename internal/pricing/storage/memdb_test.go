package storage

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// Схема для тестов повторяет миграции товарной таблицы и таблицы админов.
// SQLite понимает используемый репозиториями диалект ($N, ON CONFLICT,
// NULLS FIRST), поэтому тесты не требуют поднятого Postgres.
const testSchema = `
CREATE TABLE products_main (
	nm_id BIGINT PRIMARY KEY,
	brand TEXT,
	title TEXT,
	seller_id BIGINT,
	seller_name TEXT,
	price_before_discount NUMERIC(12,2) DEFAULT 0,
	price_after_seller_discount NUMERIC(12,2) DEFAULT 0,
	ui_price BIGINT,
	rrc NUMERIC(12,2),
	sales_24h BIGINT,
	updated_at TIMESTAMP
);
CREATE TABLE admins (
	chat_id BIGINT PRIMARY KEY,
	username TEXT
);`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// У ":memory:" каждая связь видит свою БД, пул должен быть из одного
	// соединения.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func testCatalog(t *testing.T) Catalog {
	t.Helper()
	return Catalog{name: "main"}
}
