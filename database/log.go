package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type LogEntryRow struct {
	Timestamp time.Time
	Level     int
	Message   string
	Attrs     string
}

// LogQuery selects a page of log entries, newest first. Text matches the
// message or the attributes, so "oulu" finds everything logged for the Oulu
// station and "task" everything logged by the tasks.
type LogQuery struct {
	MinLevel slog.Level
	Text     string
	Page     int
	PageSize int
}

func (d *Database) SaveLogEntry(ctx context.Context, r LogEntryRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO log (timestamp, level, message, attrs)
		VALUES (?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Level,
		r.Message,
		r.Attrs)
	if err != nil {
		return fmt.Errorf("saving log entry: %w", err)
	}
	return nil
}

// GetLogEntries returns the entries of the page and whether there are more
// after it.
func (d *Database) GetLogEntries(ctx context.Context, q LogQuery) ([]LogEntryRow, bool, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}

	like := "%" + escapeLike(strings.TrimSpace(q.Text)) + "%"
	rows, err := d.read.QueryContext(ctx, `
		SELECT timestamp, level, message, attrs
		FROM log
		WHERE level >= ? AND (message LIKE ? ESCAPE '\' OR attrs LIKE ? ESCAPE '\')
		ORDER BY id DESC
		LIMIT ? OFFSET ?`,
		int(q.MinLevel), like, like, q.PageSize+1, (q.Page-1)*q.PageSize)
	if err != nil {
		return nil, false, fmt.Errorf("fetching log entries: %w", err)
	}
	defer rows.Close()

	var ts string
	var entries []LogEntryRow
	for rows.Next() {
		var r LogEntryRow
		if err := rows.Scan(&ts, &r.Level, &r.Message, &r.Attrs); err != nil {
			return nil, false, fmt.Errorf("scanning log entry: %w", err)
		}
		if r.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, false, fmt.Errorf("parsing log timestamp %q: %w", ts, err)
		}
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("reading log rows: %w", err)
	}

	if len(entries) > q.PageSize {
		return entries[:q.PageSize], true, nil
	}
	return entries, false, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// PurgeLog keeps the newest maxLogEntries entries.
func (d *Database) PurgeLog(ctx context.Context, maxLogEntries int) error {
	res, err := d.write.ExecContext(ctx, `
		DELETE FROM log WHERE id <= (SELECT id FROM log ORDER BY id DESC LIMIT 1 OFFSET ?)`, maxLogEntries)
	if err != nil {
		return fmt.Errorf("purging log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		d.logger.Debug(fmt.Sprintf("purged %d log entries", n))
	}
	return nil
}
