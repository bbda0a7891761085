package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
)

const defaultTable = "examples"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqliteDSN builds a file: URI so that '?', '#' and '%' in path stay part of the filename.
// The path is made absolute; a relative one would be read as the URI authority.
func sqliteDSN(path, query string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: query}).String(), nil
}

// LoadSQLite reads examples from the text and label columns of table, ordered by rowid.
func LoadSQLite(path, table string) ([]Example, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	dsn, err := sqliteDSN(path, "mode=ro")
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(),
		fmt.Sprintf(`SELECT text, label FROM %s ORDER BY rowid`, table))
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	var examples []Example
	for rows.Next() {
		var ex Example
		if err := rows.Scan(&ex.Text, &ex.Label); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		examples = append(examples, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := validate(examples); err != nil {
		return nil, err
	}
	return examples, nil
}

// SaveSQLite writes examples into table, creating it if needed. Existing rows are kept.
func SaveSQLite(path, table string, examples []Example) error {
	if table == "" {
		table = defaultTable
	}
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	dsn, err := sqliteDSN(path, "")
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		label TEXT NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (text, label) VALUES (?, ?)`, table))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, ex := range examples {
		if _, err := stmt.ExecContext(ctx, ex.Text, ex.Label); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert example: %w", err)
		}
	}
	return tx.Commit()
}
