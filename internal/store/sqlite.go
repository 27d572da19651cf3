package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/eob-report/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Dates are
// stored as ISO-8601 text so NULL handling stays explicit.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS eob_history (
	rfb_id               TEXT NOT NULL,
	eob_ranker           INTEGER NOT NULL,
	eob_start_dt         TEXT,
	eob_end_dt           TEXT,
	first_eb_decision_dt TEXT,
	PRIMARY KEY (rfb_id, eob_ranker)
);

CREATE TABLE IF NOT EXISTS claims (
	id                            TEXT PRIMARY KEY,
	policy_number                 TEXT NOT NULL,
	claimant_name                 TEXT,
	carrier_name                  TEXT,
	decision                      TEXT,
	snapshot_date                 TEXT,
	ongoing_rate_month            INTEGER,
	process_to_decision_tat       REAL,
	initial_decisions_facilities  INTEGER NOT NULL DEFAULT 0,
	ongoing_all_facilities        INTEGER NOT NULL DEFAULT 0,
	retro_all_facilities          INTEGER NOT NULL DEFAULT 0,
	initial_decisions_home_health INTEGER NOT NULL DEFAULT 0,
	ongoing_home_health           INTEGER NOT NULL DEFAULT 0,
	retro_home_health             INTEGER NOT NULL DEFAULT 0,
	initial_decisions_all_other   INTEGER NOT NULL DEFAULT 0,
	all_other                     INTEGER NOT NULL DEFAULT 0,
	retro_all_other               INTEGER NOT NULL DEFAULT 0,
	retro_months                  INTEGER
);

CREATE TABLE IF NOT EXISTS report_runs (
	id           TEXT PRIMARY KEY,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	entity_count INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS retro_results (
	run_id       TEXT NOT NULL REFERENCES report_runs(id),
	rfb_id       TEXT NOT NULL,
	retro_months INTEGER NOT NULL,
	PRIMARY KEY (run_id, rfb_id)
);

CREATE INDEX IF NOT EXISTS idx_claims_carrier ON claims(carrier_name);
CREATE INDEX IF NOT EXISTS idx_claims_snapshot ON claims(snapshot_date);
CREATE INDEX IF NOT EXISTS idx_report_runs_status ON report_runs(status);
CREATE INDEX IF NOT EXISTS idx_retro_results_run_id ON retro_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertEOBHistory(ctx context.Context, rows []model.EOBHistoryRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO eob_history (rfb_id, eob_ranker, eob_start_dt, eob_end_dt, first_eb_decision_dt)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (rfb_id, eob_ranker) DO UPDATE SET
			eob_start_dt = excluded.eob_start_dt,
			eob_end_dt = excluded.eob_end_dt,
			first_eb_decision_dt = excluded.first_eb_decision_dt`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare history upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.RFBID, r.Rank, dateArg(r.StartDate), dateArg(r.EndDate), dateArg(r.FirstDecision)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert history row %s/%d", r.RFBID, r.Rank)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit history upsert")
	}
	return n, nil
}

func (s *SQLiteStore) ListEOBHistory(ctx context.Context) ([]model.EOBHistoryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rfb_id, eob_ranker, eob_start_dt, eob_end_dt, first_eb_decision_dt FROM eob_history ORDER BY rfb_id, eob_ranker`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list eob history")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.EOBHistoryRow
	for rows.Next() {
		var r model.EOBHistoryRow
		var start, end, decision sql.NullString
		if err := rows.Scan(&r.RFBID, &r.Rank, &start, &end, &decision); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan eob history row")
		}
		if r.StartDate, err = scanDate(start); err != nil {
			return nil, err
		}
		if r.EndDate, err = scanDate(end); err != nil {
			return nil, err
		}
		if r.FirstDecision, err = scanDate(decision); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate eob history")
}

func (s *SQLiteStore) InsertClaims(ctx context.Context, claims []model.Claim) (int64, error) {
	if len(claims) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert claims")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO claims (
			id, policy_number, claimant_name, carrier_name, decision,
			snapshot_date, ongoing_rate_month, process_to_decision_tat,
			initial_decisions_facilities, ongoing_all_facilities, retro_all_facilities,
			initial_decisions_home_health, ongoing_home_health, retro_home_health,
			initial_decisions_all_other, all_other, retro_all_other,
			retro_months
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert claims")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, c := range claims {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx,
			id, c.PolicyNumber, c.ClaimantName, c.CarrierName, c.Decision,
			dateArg(c.SnapshotDate), c.OngoingRateMonth, c.ProcessToDecisionTAT,
			c.InitialDecisionsFacilities, c.OngoingAllFacilities, c.RetroAllFacilities,
			c.InitialDecisionsHomeHealth, c.OngoingHomeHealth, c.RetroHomeHealth,
			c.InitialDecisionsAllOther, c.AllOther, c.RetroAllOther,
			c.RetroMonths,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert claim %s", c.PolicyNumber)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert claims")
	}
	return n, nil
}

func (s *SQLiteStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]model.Claim, error) {
	query := `SELECT id, policy_number, claimant_name, carrier_name, decision,
		snapshot_date, ongoing_rate_month, process_to_decision_tat,
		initial_decisions_facilities, ongoing_all_facilities, retro_all_facilities,
		initial_decisions_home_health, ongoing_home_health, retro_home_health,
		initial_decisions_all_other, all_other, retro_all_other,
		retro_months FROM claims`

	var args []any
	var clauses []string
	if filter.Carrier != "" {
		clauses = append(clauses, "carrier_name = ?")
		args = append(args, filter.Carrier)
	}
	if filter.Snapshot != nil {
		clauses = append(clauses, "snapshot_date = ?")
		args = append(args, filter.Snapshot.Format(time.DateOnly))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY snapshot_date DESC, policy_number"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list claims")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Claim
	for rows.Next() {
		var c model.Claim
		var snapshot sql.NullString
		var rateMonth sql.NullInt64
		var tat sql.NullFloat64
		var retroMonths sql.NullInt64
		if err := rows.Scan(
			&c.ID, &c.PolicyNumber, &c.ClaimantName, &c.CarrierName, &c.Decision,
			&snapshot, &rateMonth, &tat,
			&c.InitialDecisionsFacilities, &c.OngoingAllFacilities, &c.RetroAllFacilities,
			&c.InitialDecisionsHomeHealth, &c.OngoingHomeHealth, &c.RetroHomeHealth,
			&c.InitialDecisionsAllOther, &c.AllOther, &c.RetroAllOther,
			&retroMonths,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim row")
		}
		if c.SnapshotDate, err = scanDate(snapshot); err != nil {
			return nil, err
		}
		if rateMonth.Valid {
			v := int(rateMonth.Int64)
			c.OngoingRateMonth = &v
		}
		if tat.Valid {
			v := tat.Float64
			c.ProcessToDecisionTAT = &v
		}
		if retroMonths.Valid {
			v := int(retroMonths.Int64)
			c.RetroMonths = &v
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate claims")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, windowStart, windowEnd time.Time) (*model.ReportRun, error) {
	run := &model.ReportRun{
		ID:          uuid.New().String(),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Status:      model.RunStatusRunning,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_runs (id, window_start, window_end, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.WindowStart.Format(time.DateOnly), run.WindowEnd.Format(time.DateOnly), string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, entityCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE report_runs SET status = ?, entity_count = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), entityCount, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE report_runs SET status = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, results []model.RetroResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO retro_results (run_id, rfb_id, retro_months) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save results")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, runID, r.RFBID, r.RetroMonths); err != nil {
			return eris.Wrapf(err, "sqlite: save result %s", r.RFBID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save results")
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]model.RetroResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rfb_id, retro_months FROM retro_results WHERE run_id = ? ORDER BY rfb_id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list results for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RetroResult
	for rows.Next() {
		var r model.RetroResult
		if err := rows.Scan(&r.RFBID, &r.RetroMonths); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.ReportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, window_start, window_end, status, entity_count, created_at, completed_at FROM report_runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ReportRun
	for rows.Next() {
		var run model.ReportRun
		var start, end, status string
		var completed sql.NullTime
		if err := rows.Scan(&run.ID, &start, &end, &status, &run.EntityCount, &run.CreatedAt, &completed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		ws, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse window_start %q", start)
		}
		we, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse window_end %q", end)
		}
		run.WindowStart = ws
		run.WindowEnd = we
		run.Status = model.RunStatus(status)
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// dateArg renders a nullable date for storage.
func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

// scanDate parses a nullable stored date.
func scanDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, ns.String)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse stored date %q", ns.String)
	}
	t = t.UTC()
	return &t, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}
