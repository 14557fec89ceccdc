// Package storage is the SQLite persistence adapter. It implements the
// store ports plus the sync queue the export worker drains.
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
	"time"

	"carbonledger/internal/core"
	"carbonledger/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const recordColumns = `id, date, scope, category, activity, quantity, unit,
	emission_factor, emissions_kg, notes, business_unit, project, country,
	facility, responsible_person, data_quality, verification_status`

func scanRecord(row interface{ Scan(...any) error }) (core.EmissionRecord, error) {
	var rec core.EmissionRecord
	var date string
	err := row.Scan(&rec.ID, &date, &rec.Scope, &rec.Category, &rec.Activity,
		&rec.Quantity, &rec.Unit, &rec.EmissionFactor, &rec.EmissionsKg,
		&rec.Notes, &rec.BusinessUnit, &rec.Project, &rec.Country,
		&rec.Facility, &rec.ResponsiblePerson, &rec.DataQuality,
		&rec.VerificationStatus)
	if err != nil {
		return rec, err
	}
	rec.Date, err = core.ParseDate(date)
	if err != nil {
		return rec, fmt.Errorf("stored date %q: %w", date, err)
	}
	return rec, nil
}

// List implements store.RecordStore. Records come back in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.EmissionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM emission_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []core.EmissionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Append implements store.RecordStore.
func (r *SQLiteRepository) Append(ctx context.Context, rec core.EmissionRecord) (int64, error) {
	id, err := insertRecord(ctx, r.db, rec)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Emission record saved to SQLite",
		"id", id,
		"activity", rec.Activity,
		"scope", rec.Scope,
		"emissions_kg", rec.EmissionsKg)

	return id, nil
}

// AppendBatch inserts all records in one transaction.
func (r *SQLiteRepository) AppendBatch(ctx context.Context, recs []core.EmissionRecord) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, len(recs))
	for i, rec := range recs {
		id, err := insertRecord(ctx, tx, rec)
		if err != nil {
			return nil, fmt.Errorf("insert record %d: %w", i+1, err)
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch insert: %w", err)
	}

	slog.InfoContext(ctx, "Emission record batch saved to SQLite", "count", len(recs))
	return ids, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, rec core.EmissionRecord) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO emission_records (
			date, scope, category, activity, quantity, unit,
			emission_factor, emissions_kg, notes, business_unit, project,
			country, facility, responsible_person, data_quality,
			verification_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Date.String(), rec.Scope, rec.Category, rec.Activity,
		rec.Quantity, rec.Unit, rec.EmissionFactor, rec.EmissionsKg,
		rec.Notes, rec.BusinessUnit, rec.Project, rec.Country, rec.Facility,
		rec.ResponsiblePerson, rec.DataQuality, rec.VerificationStatus)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update implements store.RecordStore. The version bump re-queues the
// record for export.
func (r *SQLiteRepository) Update(ctx context.Context, rec core.EmissionRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE emission_records SET
			date = ?, scope = ?, category = ?, activity = ?, quantity = ?,
			unit = ?, emission_factor = ?, emissions_kg = ?, notes = ?,
			business_unit = ?, project = ?, country = ?, facility = ?,
			responsible_person = ?, data_quality = ?, verification_status = ?,
			version = version + 1, synced = 0, sync_error = 0
		WHERE id = ?`,
		rec.Date.String(), rec.Scope, rec.Category, rec.Activity,
		rec.Quantity, rec.Unit, rec.EmissionFactor, rec.EmissionsKg,
		rec.Notes, rec.BusinessUnit, rec.Project, rec.Country, rec.Facility,
		rec.ResponsiblePerson, rec.DataQuality, rec.VerificationStatus,
		rec.ID)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete implements store.RecordStore.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emission_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetRecord retrieves a single record by ID for the export worker.
func (r *SQLiteRepository) GetRecord(ctx context.Context, id int64) (core.EmissionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM emission_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, store.ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("get record by id: %w", err)
	}
	return rec, nil
}

// PendingSyncRecord is the minimal payload a sync queue message needs.
type PendingSyncRecord struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncRecords returns records that still need exporting.
func (r *SQLiteRepository) GetPendingSyncRecords(ctx context.Context, limit int) ([]PendingSyncRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at FROM emission_records
		WHERE synced = 0 AND sync_error = 0
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync records: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncRecord
	for rows.Next() {
		var p PendingSyncRecord
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks a record as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE emission_records SET synced = 1, sync_error = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	slog.InfoContext(ctx, "Record marked as synced", "id", id)
	return nil
}

// MarkSyncError flags a record whose export keeps failing so the queue
// does not retry it forever.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE emission_records SET sync_error = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark record sync error: %w", err)
	}
	slog.WarnContext(ctx, "Record marked with sync error", "id", id)
	return nil
}

// LoadProfile implements store.ProfileStore.
func (r *SQLiteRepository) LoadProfile(ctx context.Context) (core.CompanyProfile, error) {
	var p core.CompanyProfile
	var markets string
	err := r.db.QueryRowContext(ctx, `
		SELECT name, industry, location, export_markets, contact_person,
			email, phone, address, registration_number, reporting_year
		FROM company_profile WHERE id = 1`).Scan(
		&p.Name, &p.Industry, &p.Location, &markets, &p.ContactPerson,
		&p.Email, &p.Phone, &p.Address, &p.RegistrationNumber, &p.ReportingYear)
	if errors.Is(err, sql.ErrNoRows) {
		return p, store.ErrNoProfile
	}
	if err != nil {
		return p, fmt.Errorf("load company profile: %w", err)
	}
	if err := json.Unmarshal([]byte(markets), &p.ExportMarkets); err != nil {
		slog.WarnContext(ctx, "Stored export markets are corrupt, ignoring them", "error", err)
		p.ExportMarkets = nil
	}
	return p, nil
}

// SaveProfile implements store.ProfileStore. The profile is a singleton
// row.
func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.CompanyProfile) error {
	markets, err := json.Marshal(p.ExportMarkets)
	if err != nil {
		return fmt.Errorf("encode export markets: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO company_profile (
			id, name, industry, location, export_markets, contact_person,
			email, phone, address, registration_number, reporting_year
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			industry = excluded.industry,
			location = excluded.location,
			export_markets = excluded.export_markets,
			contact_person = excluded.contact_person,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			registration_number = excluded.registration_number,
			reporting_year = excluded.reporting_year`,
		p.Name, p.Industry, p.Location, string(markets), p.ContactPerson,
		p.Email, p.Phone, p.Address, p.RegistrationNumber, p.ReportingYear)
	if err != nil {
		return fmt.Errorf("save company profile: %w", err)
	}
	return nil
}

// ListFactorOverrides implements store.FactorStore.
func (r *SQLiteRepository) ListFactorOverrides(ctx context.Context) ([]store.FactorOverride, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, activity, factor, unit FROM factor_overrides ORDER BY category, activity`)
	if err != nil {
		return nil, fmt.Errorf("list factor overrides: %w", err)
	}
	defer rows.Close()

	var overrides []store.FactorOverride
	for rows.Next() {
		var o store.FactorOverride
		if err := rows.Scan(&o.Category, &o.Activity, &o.Factor, &o.Unit); err != nil {
			return nil, fmt.Errorf("scan factor override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// SaveFactorOverride implements store.FactorStore.
func (r *SQLiteRepository) SaveFactorOverride(ctx context.Context, o store.FactorOverride) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO factor_overrides (category, activity, factor, unit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category, activity) DO UPDATE SET
			factor = excluded.factor,
			unit = excluded.unit`,
		o.Category, o.Activity, o.Factor, o.Unit)
	if err != nil {
		return fmt.Errorf("save factor override: %w", err)
	}
	return nil
}
