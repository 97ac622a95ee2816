package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/spidermap/internal/entity"
)

// RecordRepoImpl provides a concrete implementation for the RecordRepository interface using PostgreSQL.
type RecordRepoImpl struct {
	db *pgxpool.Pool
}

// NewRecordRepo creates a new instance of RecordRepoImpl.
func NewRecordRepo(db *pgxpool.Pool) *RecordRepoImpl {
	return &RecordRepoImpl{db: db}
}

// SaveAll replaces the records of a job within a single transaction.
func (r *RecordRepoImpl) SaveAll(ctx context.Context, jobID string, records []entity.Record) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM business_records WHERE job_id::text = $1`, jobID); err != nil {
		return err
	}

	if len(records) > 0 {
		batch := &pgx.Batch{}
		for i, rec := range records {
			batch.Queue(`
				INSERT INTO business_records (job_id, position, name, address, phone, website, category,
				                              rating, reviews_count, latitude, longitude, gmaps_url)
				VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				jobID, i, rec.Name, rec.Address, rec.Phone, rec.Website, rec.Category,
				rec.Rating, rec.ReviewsCount, rec.Latitude, rec.Longitude, rec.SourceURL,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// FindByJob retrieves the records of a job in harvest order.
func (r *RecordRepoImpl) FindByJob(ctx context.Context, jobID string) ([]entity.Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, address, phone, website, category, rating, reviews_count, latitude, longitude, gmaps_url
		FROM business_records
		WHERE job_id::text = $1
		ORDER BY position ASC;
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []entity.Record{}
	for rows.Next() {
		var rec entity.Record
		if err := rows.Scan(
			&rec.Name,
			&rec.Address,
			&rec.Phone,
			&rec.Website,
			&rec.Category,
			&rec.Rating,
			&rec.ReviewsCount,
			&rec.Latitude,
			&rec.Longitude,
			&rec.SourceURL,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
