package pricing

import (
	"database/sql"
	"fmt"
	"log"

	"pricewatch_api/internal/pricing/storage"
)

type CreateMigrationsInfra struct{}

func (m *CreateMigrationsInfra) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS migrations;
	CREATE TABLE IF NOT EXISTS migrations.migrations (
		name VARCHAR(255) PRIMARY KEY,
		time TIMESTAMP WITH TIME ZONE NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations infrastructure: %w", err)
	}
	return nil
}

// CreateProductsTable создаёт таблицу товаров одного каталога из белого
// списка.
type CreateProductsTable struct {
	Catalog storage.Catalog
}

func (m *CreateProductsTable) UpMigration(db *sql.DB) error {
	name := m.Catalog.TableName()
	if ok, err := checkAndSkipMigration(db, name); err != nil {
		return err
	} else if ok {
		return nil
	}
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		nm_id BIGINT PRIMARY KEY,
		brand TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		seller_id BIGINT,
		seller_name TEXT,
		price_before_discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		price_after_seller_discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		ui_price BIGINT,
		rrc NUMERIC(12,2),
		sales_24h BIGINT,
		updated_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS %s_updated_at_idx ON %s (updated_at);
	CREATE INDEX IF NOT EXISTS %s_seller_id_idx ON %s (seller_id);`,
		name, name, name, name, name)
	if err := executeAndMarkMigration(db, query, name); err != nil {
		return err
	}
	log.Printf("Migration '%s' completed successfully.", name)
	return nil
}

type CreateAdminsTable struct{}

func (m *CreateAdminsTable) UpMigration(db *sql.DB) error {
	if ok, err := checkAndSkipMigration(db, "admins"); err != nil {
		return err
	} else if ok {
		return nil
	}
	query := `
	CREATE TABLE IF NOT EXISTS admins (
		chat_id BIGINT PRIMARY KEY,
		username VARCHAR(255)
	);`
	if err := executeAndMarkMigration(db, query, "admins"); err != nil {
		return err
	}
	log.Println("Migration 'admins' completed successfully.")
	return nil
}

func checkAndSkipMigration(db *sql.DB, migrationName string) (bool, error) {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", migrationName).Scan(&migrationExists)
	if err != nil {
		return migrationExists, fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Printf("Migration '%s' already completed. Skipping.\n", migrationName)
		return migrationExists, nil
	}
	return migrationExists, nil
}

func executeAndMarkMigration(db *sql.DB, query string, migrationName string) error {
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to execute migration '%s': %w", migrationName, err)
	}
	_, err = db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", migrationName)
	if err != nil {
		return fmt.Errorf("failed to mark migration '%s' as complete: %w", migrationName, err)
	}
	return nil
}
