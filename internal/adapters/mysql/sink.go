// Package mysql exports datasets into MySQL tables named after the dataset.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// Sink implements ports.RowSink.
//
// Each Write creates the table when missing, adds columns the table lacks
// and inserts rows with INSERT IGNORE inside one transaction, so rows
// already present under the same primary key are kept.
type Sink struct {
	db     *sql.DB
	logger log.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger log.Logger) (*Sink, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return NewSink(db, logger), nil
}

// NewSink wraps an open database handle.
func NewSink(db *sql.DB, logger log.Logger) *Sink {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Sink{db: db, logger: logger.With(log.Component("mysql"))}
}

// Close closes the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Write exports the rows of ds.
func (s *Sink) Write(ctx context.Context, ds *domain.Dataset) error {
	if ds.Len() == 0 {
		return nil
	}
	start := time.Now()
	cols := exportColumns(ds.Schema)
	table := ds.Schema.Name

	if _, err := s.db.ExecContext(ctx, createTableSQL(ds.Schema, cols)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	if err := s.addMissingColumns(ctx, table, cols); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, cols))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", table, err)
	}
	defer stmt.Close()

	var inserted int64
	args := make([]any, len(cols))
	for i, row := range ds.Rows {
		for j, c := range cols {
			args[j] = row[c.Name]
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	s.logger.Info("rows exported",
		log.String("table", table),
		log.Int("rows", ds.Len()),
		log.Int64("inserted", inserted),
		log.Duration("took", time.Since(start)))
	return nil
}

func (s *Sink) addMissingColumns(ctx context.Context, table string, cols []domain.Field) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?", table)
	if err != nil {
		return fmt.Errorf("list columns of %s: %w", table, err)
	}
	existing := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("list columns of %s: %w", table, err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("list columns of %s: %w", table, err)
	}
	rows.Close()

	for _, c := range cols {
		if _, ok := existing[c.Name]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, addColumnSQL(table, c)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, c.Name, err)
		}
		s.logger.Info("column added", log.String("table", table), log.String("column", c.Name))
	}
	return nil
}

// exportColumns lists the columns written to the table. The derived latest
// flag is not exported since inserted rows are never updated.
func exportColumns(s domain.Schema) []domain.Field {
	out := make([]domain.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == domain.LatestField {
			continue
		}
		out = append(out, f)
	}
	return out
}

func primaryKey(s domain.Schema) []string {
	pk := append([]string(nil), s.Key...)
	if s.Version != "" {
		pk = append(pk, s.Version)
	}
	return pk
}

func columnType(f domain.Field, indexed bool) string {
	switch f.Type {
	case domain.TypeInt:
		return "BIGINT"
	case domain.TypeFloat:
		return "DOUBLE"
	case domain.TypeBool:
		return "BOOLEAN"
	case domain.TypeDate:
		return "DATE"
	default:
		if indexed {
			return "VARCHAR(191)"
		}
		return "TEXT"
	}
}

func createTableSQL(s domain.Schema, cols []domain.Field) string {
	pk := primaryKey(s)
	inPK := make(map[string]bool, len(pk))
	for _, k := range pk {
		inPK[k] = true
	}

	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		def := quoteIdent(c.Name) + " " + columnType(c, inPK[c.Name])
		if inPK[c.Name] {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, k := range pk {
			quoted[i] = quoteIdent(k)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quoteIdent(s.Name), strings.Join(defs, ",\n  "))
}

func addColumnSQL(table string, f domain.Field) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(f.Name), columnType(f, false))
}

func insertSQL(table string, cols []domain.Field) string {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
