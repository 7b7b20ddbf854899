package db

var schema = []string{
	`CREATE TABLE IF NOT EXISTS generation_runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		status TEXT NOT NULL,
		target_groups INTEGER NOT NULL,
		total_companies BIGINT NOT NULL,
		seed BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS company_groups (
		run_id TEXT NOT NULL REFERENCES generation_runs(id),
		group_id TEXT NOT NULL,
		company_count BIGINT NOT NULL,
		revenue_category INTEGER NOT NULL,
		industry_code TEXT NOT NULL,
		industry_name TEXT NOT NULL,
		industry_category TEXT NOT NULL,
		region_code TEXT NOT NULL,
		region_name TEXT NOT NULL,
		federal_district TEXT NOT NULL,
		bank_id TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		pos_x DOUBLE PRECISION NOT NULL,
		pos_y DOUBLE PRECISION NOT NULL,
		pos_z DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, group_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_company_groups_region ON company_groups (run_id, region_code)`,
	`CREATE TABLE IF NOT EXISTS run_statistics (
		run_id TEXT PRIMARY KEY REFERENCES generation_runs(id),
		statistics TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}
