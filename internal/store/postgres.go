package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/eob-report/internal/db"
	"github.com/sells-group/eob-report/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO report_runs (id, window_start, window_end, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run": `UPDATE report_runs SET status = $1, entity_count = $2, completed_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE report_runs SET status = $1, completed_at = $2 WHERE id = $3`,
	"list_history": `SELECT rfb_id, eob_ranker, eob_start_dt, eob_end_dt, first_eb_decision_dt FROM eob_history ORDER BY rfb_id, eob_ranker`,
	"list_results": `SELECT rfb_id, retro_months FROM retro_results WHERE run_id = $1 ORDER BY rfb_id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	// The database may still be coming up when we connect.
	pingCfg := db.DefaultRetryConfig()
	pingCfg.OnRetry = db.RetryLogger("ping")
	if err := db.Retry(ctx, pingCfg, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS eob_history (
	rfb_id               TEXT NOT NULL,
	eob_ranker           INTEGER NOT NULL,
	eob_start_dt         DATE,
	eob_end_dt           DATE,
	first_eb_decision_dt DATE,
	PRIMARY KEY (rfb_id, eob_ranker)
);

CREATE TABLE IF NOT EXISTS claims (
	id                            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	policy_number                 TEXT NOT NULL,
	claimant_name                 TEXT,
	carrier_name                  TEXT,
	decision                      TEXT,
	snapshot_date                 DATE,
	ongoing_rate_month            INTEGER,
	process_to_decision_tat       DOUBLE PRECISION,
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
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	window_start DATE NOT NULL,
	window_end   DATE NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	entity_count INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var historyColumns = []string{"rfb_id", "eob_ranker", "eob_start_dt", "eob_end_dt", "first_eb_decision_dt"}

func (s *PostgresStore) UpsertEOBHistory(ctx context.Context, rows []model.EOBHistoryRow) (int64, error) {
	records := make([][]any, len(rows))
	for i, r := range rows {
		records[i] = []any{r.RFBID, r.Rank, r.StartDate, r.EndDate, r.FirstDecision}
	}

	var n int64
	retryCfg := db.DefaultRetryConfig()
	retryCfg.OnRetry = db.RetryLogger("upsert eob_history")
	err := db.Retry(ctx, retryCfg, func(ctx context.Context) error {
		var err error
		n, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        "eob_history",
			Columns:      historyColumns,
			ConflictKeys: []string{"rfb_id", "eob_ranker"},
		}, records)
		return err
	})
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert eob history")
	}
	return n, nil
}

func (s *PostgresStore) ListEOBHistory(ctx context.Context) ([]model.EOBHistoryRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rfb_id, eob_ranker, eob_start_dt, eob_end_dt, first_eb_decision_dt FROM eob_history ORDER BY rfb_id, eob_ranker`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list eob history")
	}
	defer rows.Close()

	var out []model.EOBHistoryRow
	for rows.Next() {
		var r model.EOBHistoryRow
		if err := rows.Scan(&r.RFBID, &r.Rank, &r.StartDate, &r.EndDate, &r.FirstDecision); err != nil {
			return nil, eris.Wrap(err, "postgres: scan eob history row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate eob history")
}

var claimColumns = []string{
	"id", "policy_number", "claimant_name", "carrier_name", "decision",
	"snapshot_date", "ongoing_rate_month", "process_to_decision_tat",
	"initial_decisions_facilities", "ongoing_all_facilities", "retro_all_facilities",
	"initial_decisions_home_health", "ongoing_home_health", "retro_home_health",
	"initial_decisions_all_other", "all_other", "retro_all_other",
	"retro_months",
}

func (s *PostgresStore) InsertClaims(ctx context.Context, claims []model.Claim) (int64, error) {
	records := make([][]any, len(claims))
	for i, c := range claims {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		records[i] = []any{
			id, c.PolicyNumber, c.ClaimantName, c.CarrierName, c.Decision,
			c.SnapshotDate, c.OngoingRateMonth, c.ProcessToDecisionTAT,
			c.InitialDecisionsFacilities, c.OngoingAllFacilities, c.RetroAllFacilities,
			c.InitialDecisionsHomeHealth, c.OngoingHomeHealth, c.RetroHomeHealth,
			c.InitialDecisionsAllOther, c.AllOther, c.RetroAllOther,
			c.RetroMonths,
		}
	}

	n, err := db.CopyFrom(ctx, s.pool, "claims", claimColumns, records)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert claims")
	}
	return n, nil
}

func (s *PostgresStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]model.Claim, error) {
	query := `SELECT id, policy_number, claimant_name, carrier_name, decision,
		snapshot_date, ongoing_rate_month, process_to_decision_tat,
		initial_decisions_facilities, ongoing_all_facilities, retro_all_facilities,
		initial_decisions_home_health, ongoing_home_health, retro_home_health,
		initial_decisions_all_other, all_other, retro_all_other,
		retro_months FROM claims`

	var args []any
	where := ""
	if filter.Carrier != "" {
		args = append(args, filter.Carrier)
		where = fmt.Sprintf(" WHERE carrier_name = $%d", len(args))
	}
	if filter.Snapshot != nil {
		args = append(args, *filter.Snapshot)
		clause := "WHERE"
		if where != "" {
			clause = "AND"
		}
		where += fmt.Sprintf(" %s snapshot_date = $%d", clause, len(args))
	}
	query += where + " ORDER BY snapshot_date DESC, policy_number"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list claims")
	}
	defer rows.Close()

	var out []model.Claim
	for rows.Next() {
		var c model.Claim
		if err := rows.Scan(
			&c.ID, &c.PolicyNumber, &c.ClaimantName, &c.CarrierName, &c.Decision,
			&c.SnapshotDate, &c.OngoingRateMonth, &c.ProcessToDecisionTAT,
			&c.InitialDecisionsFacilities, &c.OngoingAllFacilities, &c.RetroAllFacilities,
			&c.InitialDecisionsHomeHealth, &c.OngoingHomeHealth, &c.RetroHomeHealth,
			&c.InitialDecisionsAllOther, &c.AllOther, &c.RetroAllOther,
			&c.RetroMonths,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim row")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate claims")
}

func (s *PostgresStore) CreateRun(ctx context.Context, windowStart, windowEnd time.Time) (*model.ReportRun, error) {
	run := &model.ReportRun{
		ID:          uuid.New().String(),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Status:      model.RunStatusRunning,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO report_runs (id, window_start, window_end, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.WindowStart, run.WindowEnd, string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, entityCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE report_runs SET status = $1, entity_count = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), entityCount, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE report_runs SET status = $1, completed_at = $2 WHERE id = $3`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) SaveResults(ctx context.Context, runID string, results []model.RetroResult) error {
	records := make([][]any, len(results))
	for i, r := range results {
		records[i] = []any{runID, r.RFBID, r.RetroMonths}
	}

	if _, err := db.CopyFrom(ctx, s.pool, "retro_results", []string{"run_id", "rfb_id", "retro_months"}, records); err != nil {
		return eris.Wrapf(err, "postgres: save results for run %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListResults(ctx context.Context, runID string) ([]model.RetroResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rfb_id, retro_months FROM retro_results WHERE run_id = $1 ORDER BY rfb_id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list results for run %s", runID)
	}
	defer rows.Close()

	var out []model.RetroResult
	for rows.Next() {
		var r model.RetroResult
		if err := rows.Scan(&r.RFBID, &r.RetroMonths); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate results")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.ReportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, window_start, window_end, status, entity_count, created_at, completed_at FROM report_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.ReportRun
	for rows.Next() {
		var run model.ReportRun
		var status string
		if err := rows.Scan(&run.ID, &run.WindowStart, &run.WindowEnd, &status, &run.EntityCount, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		run.Status = model.RunStatus(status)
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
