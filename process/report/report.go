// Package report prints stored IBAN scans per user and month straight from
// Postgres through database/sql.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to Postgres with the pgx database/sql driver.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// MonthRange parses YYYY-MM and returns [start, end) in UTC.
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Row is one stored scan.
type Row struct {
	ID        int64
	Iban      string
	Formatted string
	Source    string
	SessionID string
	FileName  string
	CreatedAt time.Time
}

// Summary counts scans of one user in one month.
type Summary struct {
	Username string
	Month    string
	Total    int64
	Distinct int64
	BySource map[string]int64
}

// Run writes the month summary for username to w, and the rows when list is set.
func Run(ctx context.Context, db *sql.DB, w io.Writer, username, month string, list bool) error {
	start, end, err := MonthRange(month)
	if err != nil {
		return err
	}
	var userID int64
	if err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1 AND deleted_at IS NULL`, username).Scan(&userID); err != nil {
		return fmt.Errorf("user %s: %w", username, err)
	}

	sum := Summary{Username: username, Month: month, BySource: map[string]int64{}}
	rows, err := db.QueryContext(ctx, `SELECT source, COUNT(*) FROM iban_scans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 GROUP BY source ORDER BY source`, userID, start, end)
	if err != nil {
		return fmt.Errorf("query summary: %w", err)
	}
	for rows.Next() {
		var src string
		var n int64
		if err := rows.Scan(&src, &n); err != nil {
			rows.Close()
			return fmt.Errorf("scan: %w", err)
		}
		sum.BySource[src] = n
		sum.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT iban) FROM iban_scans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`, userID, start, end).Scan(&sum.Distinct); err != nil {
		return fmt.Errorf("query distinct: %w", err)
	}
	WriteSummary(w, sum)

	if !list {
		return nil
	}
	rows, err = db.QueryContext(ctx, `SELECT id, iban, formatted, source, session_id, file_name, created_at FROM iban_scans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY id`, userID, start, end)
	if err != nil {
		return fmt.Errorf("fetch rows failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Row
		var formatted, fileName sql.NullString
		if err := rows.Scan(&r.ID, &r.Iban, &formatted, &r.Source, &r.SessionID, &fileName, &r.CreatedAt); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		r.Formatted, r.FileName = nullStringToStr(formatted), nullStringToStr(fileName)
		WriteRow(w, r)
	}
	return rows.Err()
}

// WriteSummary prints the header block of a report.
func WriteSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "Report for user=%s month=%s (UTC):\n", s.Username, s.Month)
	fmt.Fprintf(w, "  scans=%d distinct_ibans=%d\n", s.Total, s.Distinct)
	for _, src := range []string{"camera", "photo", "watch"} {
		if n, ok := s.BySource[src]; ok {
			fmt.Fprintf(w, "  %s=%d\n", src, n)
		}
	}
}

// WriteRow prints one scan as a pipe-separated line.
func WriteRow(w io.Writer, r Row) {
	fmt.Fprintf(w, "%d|%s|%s|%s|%s|%s\n", r.ID, r.Formatted, r.Source, r.SessionID, r.FileName, r.CreatedAt.Format(time.RFC3339))
}

// PrintForeignKeys lists the foreign key constraints of the schema, handy to
// check that iban_scans and users were migrated with their constraints.
func PrintForeignKeys(ctx context.Context, db *sql.DB, w io.Writer) error {
	rows, err := db.QueryContext(ctx, `
		SELECT
		  con.oid::regclass::text AS constraint_name,
		  rel.relname AS table_name,
		  array_agg(att.attname ORDER BY u.attnum) AS src_columns,
		  confrel.relname AS referenced_table,
		  pg_get_constraintdef(con.oid) AS definition
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class confrel ON confrel.oid = con.confrelid
		JOIN unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord) ON true
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum
		WHERE con.contype = 'f'
		GROUP BY con.oid, rel.relname, confrel.relname
		ORDER BY rel.relname, constraint_name;
	`)
	if err != nil {
		return fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	fmt.Fprintln(w, "Foreign keys:")
	for rows.Next() {
		var cname, table, reftable, def string
		var srcCols sql.NullString
		if err := rows.Scan(&cname, &table, &srcCols, &reftable, &def); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		fmt.Fprintf(w, "- %s: %s(%s) -> %s\n    def: %s\n", cname, table, nullStringToStr(srcCols), reftable, def)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	return nil
}

func nullStringToStr(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
