package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// appointments.employee_number keeps INTEGER affinity for compatibility with
// existing stores. Text employee numbers are stored unchanged.
var schema = []struct {
	table string
	ddl   string
}{
	{"employees", `CREATE TABLE employees(
		employee_number TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL)`},
	{"patients", `CREATE TABLE patients(
		first_name TEXT NOT NULL,
		surname TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT NOT NULL,
		PRIMARY KEY(first_name, surname))`},
	{"appointments", `CREATE TABLE appointments(
		type TEXT NOT NULL,
		employee_number INTEGER NOT NULL,
		patient_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		PRIMARY KEY(employee_number, patient_id, date))`},
}

func createSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	for _, s := range schema {
		if _, err := tx.ExecContext(ctx, s.ddl); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to create table %s: %w", s.table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
