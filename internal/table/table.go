package table

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/TobiSchelling/commentpulse/internal/record"
)

const schema = `
CREATE TABLE records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    comments TEXT NOT NULL,
    comment_sentiments TEXT NOT NULL,
    average_sentiment REAL NOT NULL
);`

// Table is the scored dataset held in an in-memory SQLite database.
// Columns: title, description, comments (JSON array), comment_sentiments
// (JSON array), average_sentiment.
type Table struct {
	conn *sql.DB
}

// Summary holds dataset-wide totals.
type Summary struct {
	Records          int
	Comments         int
	AverageSentiment float64 // mean of the per-record averages
}

// Load creates a fresh in-memory table holding rows in order.
func Load(rows []record.Scored) (*Table, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory table: %w", err)
	}
	// Every pooled connection would get its own empty :memory: database.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	t := &Table{conn: conn}
	if err := t.insert(rows); err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

// Close releases the in-memory database.
func (t *Table) Close() error {
	return t.conn.Close()
}

func (t *Table) insert(rows []record.Scored) error {
	tx, err := t.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO records
		(title, description, comments, comment_sentiments, average_sentiment)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		comments := r.Comments
		if comments == nil {
			comments = []string{}
		}
		sentiments := r.CommentSentiments
		if sentiments == nil {
			sentiments = []float64{}
		}
		cj, err := json.Marshal(comments)
		if err != nil {
			tx.Rollback()
			return err
		}
		sj, err := json.Marshal(sentiments)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(r.Title, r.Description, string(cj), string(sj), r.AverageSentiment); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Len returns the number of rows.
func (t *Table) Len() (int, error) {
	var n int
	err := t.conn.QueryRow("SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

// Rows returns every row in insertion order.
func (t *Table) Rows() ([]record.Scored, error) {
	rows, err := t.conn.Query(
		`SELECT title, description, comments, comment_sentiments, average_sentiment
		FROM records ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Scored
	for rows.Next() {
		var (
			s      record.Scored
			cj, sj string
		)
		if err := rows.Scan(&s.Title, &s.Description, &cj, &sj, &s.AverageSentiment); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cj), &s.Comments); err != nil {
			return nil, fmt.Errorf("decoding comments: %w", err)
		}
		if err := json.Unmarshal([]byte(sj), &s.CommentSentiments); err != nil {
			return nil, fmt.Errorf("decoding comment_sentiments: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CommentLengths returns the character length of every comment, ordered by
// row and then by position within the row.
func (t *Table) CommentLengths() ([]float64, error) {
	return t.floats(
		`SELECT length(c.value) FROM records r, json_each(r.comments) c
		ORDER BY r.id, c.key`,
	)
}

// AverageSentiments returns the average_sentiment column in row order.
func (t *Table) AverageSentiments() ([]float64, error) {
	return t.floats("SELECT average_sentiment FROM records ORDER BY id")
}

// Summary returns dataset-wide totals.
func (t *Table) Summary() (*Summary, error) {
	var s Summary
	err := t.conn.QueryRow(
		`SELECT
			COUNT(*),
			COALESCE(AVG(average_sentiment), 0),
			(SELECT COUNT(*) FROM records r, json_each(r.comments))
		FROM records`,
	).Scan(&s.Records, &s.AverageSentiment, &s.Comments)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *Table) floats(query string) ([]float64, error) {
	rows, err := t.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
