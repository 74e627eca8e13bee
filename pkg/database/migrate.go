package database

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// columns added after the first release; CREATE TABLE IF NOT EXISTS never
// touches a table that is already there.
var addedColumns = []struct {
	table, column, ddl string
}{
	{"users", "image_url", `ALTER TABLE users ADD COLUMN image_url TEXT NOT NULL DEFAULT ''`},
}

// Migrate applies the embedded schema. Every statement is IF NOT EXISTS so it
// is safe to run on every start.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	for _, col := range addedColumns {
		ok, err := hasColumn(db, col.table, col.column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := db.Exec(col.ddl); err != nil {
			return fmt.Errorf("add %s.%s: %w", col.table, col.column, err)
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
