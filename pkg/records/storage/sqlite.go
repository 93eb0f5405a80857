package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
)

// Supported database/sql driver names.
const (
	DriverCGo    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// SQLiteStorage implements records.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies pragmas and creates the
// schema. Zero-valued config fields fall back to the config defaults.
func NewSQLiteStorage(cfg config.SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		cfg.Path = config.DefaultSQLitePath
	}
	if cfg.Driver == "" {
		cfg.Driver = config.DefaultSQLiteDriver
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = config.DefaultSQLiteMaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = config.DefaultSQLiteMaxIdleConns
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = config.DefaultSQLiteBusyTimeout
	}
	if cfg.Driver != DriverCGo && cfg.Driver != DriverPureGo {
		return nil, records.NewStorageError("sqlite", "open", fmt.Errorf("unsupported driver %q", cfg.Driver))
	}

	logger := slog.Default().With("component", "records.storage.sqlite")

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, records.NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, records.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return records.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return records.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return records.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return records.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return records.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return records.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	return nil
}

// Store inserts a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *records.Record) error {
	if record == nil || record.ID == "" {
		return records.NewStorageError("sqlite", "store", fmt.Errorf("record ID is required"))
	}

	var result sql.NullString
	if record.Result != nil {
		data, err := json.Marshal(record.Result)
		if err != nil {
			return records.NewStorageError("sqlite", "marshal_result", err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID,
		record.Source,
		record.SchemaVersion,
		nullString(record.SchemaRev),
		record.Status,
		nullString(record.Name),
		result,
		nullString(record.Error),
		record.InputHash,
		record.InputLines,
		record.ParsedAt.UnixNano(),
		record.Duration.Microseconds(),
	)
	if err != nil {
		return records.NewStorageError("sqlite", "store", err)
	}

	s.logger.Debug("record stored", "id", record.ID, "status", record.Status)
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*records.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM records WHERE id = ?", id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.ErrRecordNotFound
	}
	if err != nil {
		return nil, records.NewStorageError("sqlite", "get", err)
	}
	return record, nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *records.Query) ([]*records.Record, error) {
	where, args := buildWhereClause(query)

	order := "DESC"
	if query.SortOrder == records.SortAsc {
		order = "ASC"
	}

	sqlQuery := fmt.Sprintf("SELECT %s FROM records%s ORDER BY parsed_at %s, id %s", selectColumns, where, order, order)
	if query.Limit > 0 {
		sqlQuery += " LIMIT ? OFFSET ?"
		args = append(args, query.Limit, query.Offset)
	} else if query.Offset > 0 {
		sqlQuery += " LIMIT -1 OFFSET ?"
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, records.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	results := make([]*records.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, records.NewStorageError("sqlite", "scan", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, records.NewStorageError("sqlite", "query", err)
	}

	return results, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *records.Query) (int64, error) {
	where, args := buildWhereClause(query)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records"+where, args...).Scan(&count); err != nil {
		return 0, records.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *records.Query) (int64, error) {
	where, args := buildWhereClause(query)

	result, err := s.db.ExecContext(ctx, "DELETE FROM records"+where, args...)
	if err != nil {
		return 0, records.NewStorageError("sqlite", "delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, records.NewStorageError("sqlite", "delete", err)
	}

	s.logger.Debug("records deleted", "count", deleted)
	return deleted, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return records.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return records.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause builds a WHERE clause (with leading space) and its
// arguments from the query filters.
func buildWhereClause(query *records.Query) (string, []any) {
	var conditions []string
	var args []any

	if len(query.IDs) > 0 {
		placeholders := make([]string, len(query.IDs))
		for i, id := range query.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, "id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if query.StartTime != nil {
		conditions = append(conditions, "parsed_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "parsed_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, query.Status)
	}
	if query.Name != "" {
		conditions = append(conditions, "LOWER(name) LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(strings.ToLower(query.Name))+"%")
	}
	if query.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, query.Source)
	}
	if query.SchemaVersion != "" {
		conditions = append(conditions, "schema_version = ?")
		args = append(args, query.SchemaVersion)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*records.Record, error) {
	var (
		record                          records.Record
		schemaRev, name, result, errMsg sql.NullString
		parsedAt, durationUS            int64
	)

	err := row.Scan(
		&record.ID,
		&record.Source,
		&record.SchemaVersion,
		&schemaRev,
		&record.Status,
		&name,
		&result,
		&errMsg,
		&record.InputHash,
		&record.InputLines,
		&parsedAt,
		&durationUS,
	)
	if err != nil {
		return nil, err
	}

	record.SchemaRev = schemaRev.String
	record.Name = name.String
	record.Error = errMsg.String
	record.ParsedAt = time.Unix(0, parsedAt).UTC()
	record.Duration = time.Duration(durationUS) * time.Microsecond

	if result.Valid && result.String != "" {
		if err := json.Unmarshal([]byte(result.String), &record.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}

	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
