package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

const (
	querySchema = `
CREATE TABLE IF NOT EXISTS detections (
	id            TEXT PRIMARY KEY,
	license_plate TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	image_path    TEXT
);
CREATE INDEX IF NOT EXISTS detections_plate_timestamp_idx ON detections (license_plate, timestamp DESC);`

	queryExists = `SELECT EXISTS (
	SELECT 1 FROM detections WHERE license_plate = $1 AND timestamp BETWEEN $2 AND $3
)`

	queryInsert = `INSERT INTO detections (id, license_plate, timestamp, image_path)
VALUES (:id, :license_plate, :timestamp, :image_path)`

	queryRecent = `SELECT id, license_plate, timestamp, image_path
FROM detections ORDER BY timestamp DESC, id DESC LIMIT $1`
)

// detectionRow строка таблицы detections
type detectionRow struct {
	ID        string         `db:"id"`
	Plate     string         `db:"license_plate"`
	Timestamp time.Time      `db:"timestamp"`
	ImagePath sql.NullString `db:"image_path"`
}

func rowFromRecord(r entity.DetectionRecord) detectionRow {
	return detectionRow{
		ID:        r.ID,
		Plate:     r.Plate,
		Timestamp: r.Timestamp.UTC(),
		ImagePath: sql.NullString{String: r.ImageRef, Valid: r.ImageRef != ""},
	}
}

func (row detectionRow) record() entity.DetectionRecord {
	return entity.DetectionRecord{
		ID:        row.ID,
		Plate:     row.Plate,
		Timestamp: row.Timestamp.UTC(),
		ImageRef:  row.ImagePath.String,
	}
}

// OpenPostgres открывает пул через драйвер pgx и проверяет соединение
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// PostgresDetectionRepository история детекций в таблице detections
type PostgresDetectionRepository struct {
	db *sqlx.DB
}

func NewPostgresDetectionRepository(db *sqlx.DB) *PostgresDetectionRepository {
	return &PostgresDetectionRepository{db: db}
}

// Migrate создаёт таблицу и индекс, если их нет
func (r *PostgresDetectionRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, querySchema); err != nil {
		return fmt.Errorf("PostgresDetectionRepository.Migrate: %w", err)
	}
	return nil
}

func (r *PostgresDetectionRepository) Exists(ctx context.Context, plate string, from, to time.Time) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, queryExists, plate, from.UTC(), to.UTC()); err != nil {
		return false, fmt.Errorf("PostgresDetectionRepository.Exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresDetectionRepository) Insert(ctx context.Context, record entity.DetectionRecord) error {
	if _, err := r.db.NamedExecContext(ctx, queryInsert, rowFromRecord(record)); err != nil {
		return fmt.Errorf("PostgresDetectionRepository.Insert: %w", err)
	}
	return nil
}

func (r *PostgresDetectionRepository) Recent(ctx context.Context, limit int) ([]entity.DetectionRecord, error) {
	var rows []detectionRow
	if err := r.db.SelectContext(ctx, &rows, queryRecent, limit); err != nil {
		return nil, fmt.Errorf("PostgresDetectionRepository.Recent: %w", err)
	}

	records := make([]entity.DetectionRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

var _ port.DetectionHistory = (*PostgresDetectionRepository)(nil)
