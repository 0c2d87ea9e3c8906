package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pump-sync/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const timeFormat = time.RFC3339

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	repo := &Repository{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *Repository) initSchema() error {
	createSubjectsTable := `
    CREATE TABLE IF NOT EXISTS sync_subjects (
        subject_id TEXT PRIMARY KEY,
        device_id TEXT,
        status TEXT NOT NULL,
        start_time TEXT NOT NULL,
        end_time TEXT,
        last_event_time TEXT
    );`
	if _, err := r.db.Exec(createSubjectsTable); err != nil {
		return err
	}

	// Records are upserted by (legacy_key, kind): reprocessing a batch
	// after a partial failure updates rows in place instead of
	// duplicating them.
	createRecordsTable := `
    CREATE TABLE IF NOT EXISTS canonical_records (
        id TEXT NOT NULL,
        legacy_key TEXT NOT NULL,
        kind TEXT NOT NULL,
        subject_id TEXT NOT NULL,
        event_time INTEGER NOT NULL,
        source TEXT,
        payload TEXT NOT NULL,
        created_at TEXT NOT NULL,
        modified_at TEXT NOT NULL,
        PRIMARY KEY (legacy_key, kind)
    );`
	_, err := r.db.Exec(createRecordsTable)
	return err
}

// SaveRecords writes one batch's canonical records in a single transaction.
func (r *Repository) SaveRecords(subjectID string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO canonical_records
            (id, legacy_key, kind, subject_id, event_time, source, payload, created_at, modified_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(legacy_key, kind) DO UPDATE SET
            payload = excluded.payload,
            modified_at = excluded.modified_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal record %s: %w", record.Base().LegacyKey, err)
		}
		base := record.Base()
		_, err = stmt.Exec(
			base.ID,
			base.LegacyKey,
			string(record.Kind()),
			subjectID,
			base.Time.UnixMilli(),
			base.Source,
			string(payload),
			base.CreatedAt.UTC().Format(timeFormat),
			base.ModifiedAt.UTC().Format(timeFormat),
		)
		if err != nil {
			log.Printf("Failed to save record %s, rolling back transaction. Error: %v", base.LegacyKey, err)
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CountRecords returns how many records a subject has per kind.
func (r *Repository) CountRecords(subjectID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT kind, COUNT(*) FROM canonical_records WHERE subject_id = ? GROUP BY kind`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func (r *Repository) StartSubject(subjectID, deviceID string) error {
	nowStr := time.Now().UTC().Format(timeFormat)
	query := `INSERT OR REPLACE INTO sync_subjects (subject_id, device_id, status, start_time, end_time, last_event_time) VALUES (?, ?, ?, ?, NULL, NULL)`
	_, err := r.db.Exec(query, subjectID, deviceID, "running", nowStr)
	return err
}

func (r *Repository) StopSubject(subjectID string) error {
	nowStr := time.Now().UTC().Format(timeFormat)
	query := `UPDATE sync_subjects SET status = ?, end_time = ? WHERE subject_id = ?`
	_, err := r.db.Exec(query, "stopped", nowStr, subjectID)
	return err
}

func (r *Repository) BatchUpdateLastEventTime(updates map[string]int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("UPDATE sync_subjects SET last_event_time = ? WHERE subject_id = ?")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for subjectID, millis := range updates {
		timeStr := time.UnixMilli(millis).UTC().Format(timeFormat)
		if _, err := stmt.Exec(timeStr, subjectID); err != nil {
			log.Printf("Failed to update time for subject %s, rolling back transaction. Error: %v", subjectID, err)
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *Repository) GetActiveSubjects() ([]models.SubjectState, error) {
	query := `SELECT subject_id, device_id, status, start_time, end_time, last_event_time FROM sync_subjects WHERE status = 'running'`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []models.SubjectState
	for rows.Next() {
		var subject models.SubjectState
		var deviceID sql.NullString
		var startTimeStr string
		var endTimeStr, lastEventTimeStr sql.NullString

		if err := rows.Scan(
			&subject.SubjectID,
			&deviceID,
			&subject.Status,
			&startTimeStr,
			&endTimeStr,
			&lastEventTimeStr,
		); err != nil {
			return nil, err
		}
		subject.DeviceID = deviceID.String

		startTime, err := time.Parse(timeFormat, startTimeStr)
		if err != nil {
			log.Printf("Warning: could not parse start_time '%s' from DB: %v", startTimeStr, err)
			continue
		}
		subject.StartTime = startTime.Unix()

		if endTimeStr.Valid {
			if endTime, err := time.Parse(timeFormat, endTimeStr.String); err == nil {
				endUnix := endTime.Unix()
				subject.EndTime = &endUnix
			}
		}
		if lastEventTimeStr.Valid {
			if lastEventTime, err := time.Parse(timeFormat, lastEventTimeStr.String); err == nil {
				lastMillis := lastEventTime.UnixMilli()
				subject.LastEventTime = &lastMillis
			}
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (r *Repository) Close() {
	r.db.Close()
}
