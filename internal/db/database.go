package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/models"
)

// insertBatchSize bounds the bind parameters of one multi-row insert
const insertBatchSize = 500

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("generation run not found")

// Database persists generation runs, their groups and statistics
type Database struct {
	db     *sqlx.DB
	config Config
}

// NewDatabase creates a new database connection with the given configuration
func NewDatabase(config Config) (*Database, error) {
	driver, dsn := config.DataSource()

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if driver == DriverSQLite {
		// every connection to an in-memory database sees its own copy
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	log.Printf("Connected to database %s", config)
	return &Database{db: db, config: config}, nil
}

// Close closes the database connection pool
func (d *Database) Close() error {
	if d.db != nil {
		log.Printf("Closing database connection")
		return d.db.Close()
	}
	return nil
}

// EnsureSchema creates the tables if they do not exist
func (d *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to create schema")
		}
	}
	return nil
}

// InsertRun records a new run
func (d *Database) InsertRun(ctx context.Context, run *models.GenerationRun) error {
	const query = `
		INSERT INTO generation_runs (
			id, created_at, finished_at, status, target_groups, total_companies, seed
		) VALUES (
			:id, :created_at, :finished_at, :status, :target_groups, :total_companies, :seed
		)
	`
	if _, err := d.db.NamedExecContext(ctx, query, run); err != nil {
		return errors.Wrapf(err, "failed to insert run %s", run.ID)
	}
	log.Printf("Inserted run %s with status %s", run.ID, run.Status)
	return nil
}

// UpdateRunStatus sets the final status of a run
func (d *Database) UpdateRunStatus(ctx context.Context, runID string, status models.RunStatus, totalCompanies int64) error {
	query := d.db.Rebind(`
		UPDATE generation_runs
		SET status = ?, finished_at = ?, total_companies = ?
		WHERE id = ?
	`)
	res, err := d.db.ExecContext(ctx, query, status, time.Now().UTC(), totalCompanies, runID)
	if err != nil {
		return errors.Wrapf(err, "failed to update run %s", runID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrap(ErrRunNotFound, runID)
	}
	log.Printf("Updated run %s status to %s", runID, status)
	return nil
}

// GetRun returns the run with the given id
func (d *Database) GetRun(ctx context.Context, runID string) (*models.GenerationRun, error) {
	var run models.GenerationRun
	err := d.db.GetContext(ctx, &run, d.db.Rebind(`SELECT * FROM generation_runs WHERE id = ?`), runID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query run %s", runID)
	}
	return &run, nil
}

// LatestRun returns the most recently completed run
func (d *Database) LatestRun(ctx context.Context) (*models.GenerationRun, error) {
	var run models.GenerationRun
	query := d.db.Rebind(`
		SELECT * FROM generation_runs
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT 1
	`)
	err := d.db.GetContext(ctx, &run, query, models.RunCompleted)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query latest run")
	}
	return &run, nil
}

type groupRow struct {
	RunID            string  `db:"run_id"`
	GroupID          string  `db:"group_id"`
	Count            int64   `db:"company_count"`
	RevenueCategory  int     `db:"revenue_category"`
	IndustryCode     string  `db:"industry_code"`
	IndustryName     string  `db:"industry_name"`
	IndustryCategory string  `db:"industry_category"`
	RegionCode       string  `db:"region_code"`
	RegionName       string  `db:"region_name"`
	FederalDistrict  string  `db:"federal_district"`
	BankID           string  `db:"bank_id"`
	BankName         string  `db:"bank_name"`
	Lat              float64 `db:"lat"`
	Lon              float64 `db:"lon"`
	X                float64 `db:"pos_x"`
	Y                float64 `db:"pos_y"`
	Z                float64 `db:"pos_z"`
}

func newGroupRow(runID string, g models.CompanyGroup) groupRow {
	return groupRow{
		RunID:            runID,
		GroupID:          g.ID,
		Count:            g.Count,
		RevenueCategory:  g.RevenueCategory,
		IndustryCode:     g.IndustryCode,
		IndustryName:     g.IndustryName,
		IndustryCategory: g.IndustryCategory,
		RegionCode:       g.RegionCode,
		RegionName:       g.RegionName,
		FederalDistrict:  g.FederalDistrict,
		BankID:           g.BankID,
		BankName:         g.BankName,
		Lat:              g.Coordinates.Lat,
		Lon:              g.Coordinates.Lon,
		X:                g.Position3D.X,
		Y:                g.Position3D.Y,
		Z:                g.Position3D.Z,
	}
}

// InsertGroups stores all groups of a run in one transaction
func (d *Database) InsertGroups(ctx context.Context, runID string, groups []models.CompanyGroup) error {
	const query = `
		INSERT INTO company_groups (
			run_id, group_id, company_count, revenue_category,
			industry_code, industry_name, industry_category,
			region_code, region_name, federal_district,
			bank_id, bank_name, lat, lon, pos_x, pos_y, pos_z
		) VALUES (
			:run_id, :group_id, :company_count, :revenue_category,
			:industry_code, :industry_name, :industry_category,
			:region_code, :region_name, :federal_district,
			:bank_id, :bank_name, :lat, :lon, :pos_x, :pos_y, :pos_z
		)
	`
	if len(groups) == 0 {
		return nil
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	rows := make([]groupRow, 0, insertBatchSize)
	for start := 0; start < len(groups); start += insertBatchSize {
		end := min(start+insertBatchSize, len(groups))
		rows = rows[:0]
		for _, g := range groups[start:end] {
			rows = append(rows, newGroupRow(runID, g))
		}
		if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
			return errors.Wrapf(err, "failed to insert groups %d-%d", start, end)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	log.Printf("Inserted %d groups for run %s", len(groups), runID)
	return nil
}

// CountGroups returns the number of stored groups of a run
func (d *Database) CountGroups(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := d.db.GetContext(ctx, &n, d.db.Rebind(`SELECT COUNT(*) FROM company_groups WHERE run_id = ?`), runID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count groups of run %s", runID)
	}
	return n, nil
}

// InsertStatistics stores the JSON-encoded statistics of a run
func (d *Database) InsertStatistics(ctx context.Context, runID string, statsJSON []byte) error {
	query := d.db.Rebind(`INSERT INTO run_statistics (run_id, statistics, created_at) VALUES (?, ?, ?)`)
	if _, err := d.db.ExecContext(ctx, query, runID, string(statsJSON), time.Now().UTC()); err != nil {
		return errors.Wrapf(err, "failed to insert statistics of run %s", runID)
	}
	return nil
}

// GetStatistics returns the statistics stored for a run
func (d *Database) GetStatistics(ctx context.Context, runID string) (*models.Statistics, error) {
	var raw string
	err := d.db.GetContext(ctx, &raw, d.db.Rebind(`SELECT statistics FROM run_statistics WHERE run_id = ?`), runID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query statistics of run %s", runID)
	}

	var stats models.Statistics
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, errors.Wrapf(err, "failed to decode statistics of run %s", runID)
	}
	return &stats, nil
}
