package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// migration quries
	createEmployeesTableSQL = `
  CREATE TABLE IF NOT EXISTS employees (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  department TEXT NOT NULL DEFAULT '',
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
  )`

	createRunsTableSQL = `
  CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  workbook TEXT NOT NULL,
  status TEXT NOT NULL,
  calls INTEGER NOT NULL DEFAULT 0,
  inserted INTEGER NOT NULL DEFAULT 0,
  dropped INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT '',
  started_at DATETIME NOT NULL,
  finished_at DATETIME
  )`

	createRunDetailsTableSQL = `
  CREATE TABLE IF NOT EXISTS run_details (
  run_id TEXT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  count INTEGER NOT NULL DEFAULT 0,
  message TEXT NOT NULL DEFAULT '',
  FOREIGN KEY (run_id) REFERENCES runs(id)
  )`

	createRunsFingerprintIndexSQL = `CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint, workbook)`

	// employee queries
	createEmployeeSQL      = `INSERT INTO employees (name, department) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET department = excluded.department`
	getAllEmployeesSQL     = `SELECT name FROM employees ORDER BY name`
	checkEmployeeExistsSQL = `SELECT EXISTS(SELECT 1 FROM employees WHERE name = ?)`

	// run queries
	createRunSQL    = `INSERT INTO runs (id, source, fingerprint, workbook, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`
	finishRunSQL    = `UPDATE runs SET status = ?, calls = ?, inserted = ?, dropped = ?, error = ?, finished_at = ? WHERE id = ?`
	createDetailSQL = `INSERT INTO run_details (run_id, name, kind, count, message) VALUES (?, ?, ?, ?, ?)`
	checkMergedSQL  = `SELECT EXISTS(SELECT 1 FROM runs WHERE fingerprint = ? AND workbook = ? AND status = 'succeeded')`

	getRunsBetweenSQL = `
  SELECT id, source, fingerprint, workbook, status, calls, inserted, dropped, error, started_at, finished_at
  FROM runs
  WHERE started_at >= ? AND started_at < ?
  ORDER BY started_at`

	getRunDetailsSQL = `SELECT name, kind, count, message FROM run_details WHERE run_id = ? ORDER BY kind, name`
)

type Repo struct {
	db *sql.DB
}

func NewRepo(dbPath string) (*Repo, error) {
	// ensure directory exists
	err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// open database
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// verify connection with database
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &Repo{db: db}

	// run migrations
	if err := repo.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

// runs migrations on initial start
func (r *Repo) runMigrations() error {
	tables := []string{
		createEmployeesTableSQL,
		createRunsTableSQL,
		createRunDetailsTableSQL,
		createRunsFingerprintIndexSQL,
	}

	for _, tableSQL := range tables {
		if _, err := r.db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// +------------------------+
// |                        |
// |    Employee Queries    |
// |                        |
// +------------------------+

// registers an employee or moves them to another department
func (r *Repo) CreateEmployee(name, department string) error {
	_, err := r.db.Exec(createEmployeeSQL, name, department)
	return err
}

// checks if an employee is registered
func (r *Repo) CheckEmployeeExists(name string) bool {
	var exists bool
	err := r.db.QueryRow(checkEmployeeExistsSQL, name).Scan(&exists)
	if err != nil {
		log.Printf("error checking if employee exists: %v", err)
		return false
	}
	return exists
}

// get all employee names
func (r *Repo) GetAllEmployees() ([]string, error) {
	rows, err := r.db.Query(getAllEmployeesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}

// +-------------------+
// |                   |
// |    Run Queries    |
// |                   |
// +-------------------+

func (r *Repo) CreateRun(run *Run) error {
	_, err := r.db.Exec(createRunSQL, run.ID, run.Source, run.Fingerprint, run.Workbook, run.Status, run.StartedAt)
	return err
}

// stores the outcome of a run together with its details
func (r *Repo) FinishRun(run *Run) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(finishRunSQL, run.Status, run.Calls, run.Inserted, run.Dropped, run.Error, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("error while finishing run: %w", err)
	}

	for _, d := range run.Details {
		if _, err := tx.Exec(createDetailSQL, run.ID, d.Name, d.Kind, d.Count, d.Message); err != nil {
			return fmt.Errorf("error while storing run detail: %w", err)
		}
	}

	return tx.Commit()
}

// reports whether a source with this fingerprint was already merged into workbook
func (r *Repo) HasMerged(fingerprint, workbook string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(checkMergedSQL, fingerprint, workbook).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// get runs started in [startTime, endTime) with their details
func (r *Repo) GetRunsBetween(startTime, endTime time.Time) ([]Run, error) {
	rows, err := r.db.Query(getRunsBetweenSQL, startTime, endTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		err := rows.Scan(&run.ID, &run.Source, &run.Fingerprint, &run.Workbook, &run.Status,
			&run.Calls, &run.Inserted, &run.Dropped, &run.Error, &run.StartedAt, &finished)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		details, err := r.getRunDetails(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Details = details
	}

	return runs, nil
}

func (r *Repo) getRunDetails(runID string) ([]RunDetail, error) {
	rows, err := r.db.Query(getRunDetailsSQL, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []RunDetail
	for rows.Next() {
		var d RunDetail
		if err := rows.Scan(&d.Name, &d.Kind, &d.Count, &d.Message); err != nil {
			return nil, err
		}
		details = append(details, d)
	}

	return details, rows.Err()
}
