package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/eob-report/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS eob_history").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertEOBHistory(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	rows := []model.EOBHistoryRow{
		{RFBID: "rfb-1", Rank: 1},
		{RFBID: "rfb-1", Rank: 2, StartDate: date(2024, time.January, 1)},
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_eob_history"}, historyColumns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "eob_history"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	n, err := st.UpsertEOBHistory(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListEOBHistory(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	start := *date(2024, time.January, 1)
	decision := *date(2024, time.March, 15)
	mock.ExpectQuery("SELECT rfb_id, eob_ranker, eob_start_dt, eob_end_dt, first_eb_decision_dt FROM eob_history").
		WillReturnRows(pgxmock.NewRows([]string{"rfb_id", "eob_ranker", "eob_start_dt", "eob_end_dt", "first_eb_decision_dt"}).
			AddRow("rfb-1", 1, nil, nil, nil).
			AddRow("rfb-1", 2, &start, nil, &decision))

	got, err := st.ListEOBHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].OpenEnded())
	require.NotNil(t, got[1].StartDate)
	assert.Equal(t, start, *got[1].StartDate)
	require.NotNil(t, got[1].FirstDecision)
	assert.Equal(t, decision, *got[1].FirstDecision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertClaims_GeneratesIDs(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"claims"}, claimColumns).WillReturnResult(1)

	n, err := st.InsertClaims(context.Background(), []model.Claim{
		{PolicyNumber: "P-100", CarrierName: "Acme Life", Decision: model.DecisionApproved},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListClaims_Filters(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	snapshot := *date(2024, time.March, 31)
	claimRow := func(rows *pgxmock.Rows, policy string) *pgxmock.Rows {
		return rows.AddRow(
			"id-1", policy, "Jane Doe", "Acme Life", model.DecisionApproved,
			&snapshot, nil, nil,
			1, 0, 0,
			0, 0, 0,
			0, 0, 0,
			nil,
		)
	}

	mock.ExpectQuery(`WHERE carrier_name = \$1 AND snapshot_date = \$2 ORDER BY snapshot_date DESC, policy_number LIMIT \$3`).
		WithArgs("Acme Life", snapshot, 10).
		WillReturnRows(claimRow(pgxmock.NewRows([]string{
			"id", "policy_number", "claimant_name", "carrier_name", "decision",
			"snapshot_date", "ongoing_rate_month", "process_to_decision_tat",
			"initial_decisions_facilities", "ongoing_all_facilities", "retro_all_facilities",
			"initial_decisions_home_health", "ongoing_home_health", "retro_home_health",
			"initial_decisions_all_other", "all_other", "retro_all_other",
			"retro_months",
		}), "P-100"))

	got, err := st.ListClaims(context.Background(), ClaimFilter{
		Carrier:  "Acme Life",
		Snapshot: &snapshot,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "P-100", got[0].PolicyNumber)
	assert.Equal(t, "Acme Life", got[0].CarrierName)
	assert.Nil(t, got[0].RetroMonths)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateRun(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO report_runs").
		WithArgs(pgxmock.AnyArg(), *date(2024, time.March, 1), *date(2024, time.March, 31), string(model.RunStatusRunning), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := st.CreateRun(context.Background(), *date(2024, time.March, 1), *date(2024, time.March, 31))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("UPDATE report_runs SET status").
		WithArgs(string(model.RunStatusComplete), 42, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, st.CompleteRun(context.Background(), "run-1", 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun_NotFound(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("UPDATE report_runs SET status").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.CompleteRun(context.Background(), "missing-run", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FailRun_NotFound(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("UPDATE report_runs SET status").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.FailRun(context.Background(), "missing-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveAndListResults(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"retro_results"}, []string{"run_id", "rfb_id", "retro_months"}).
		WillReturnResult(2)
	mock.ExpectQuery("SELECT rfb_id, retro_months FROM retro_results").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"rfb_id", "retro_months"}).
			AddRow("rfb-1", 2).
			AddRow("rfb-2", 0))

	require.NoError(t, st.SaveResults(context.Background(), "run-1", []model.RetroResult{
		{RFBID: "rfb-1", RetroMonths: 2},
		{RFBID: "rfb-2", RetroMonths: 0},
	}))

	got, err := st.ListResults(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []model.RetroResult{
		{RFBID: "rfb-1", RetroMonths: 2},
		{RFBID: "rfb-2", RetroMonths: 0},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	created := time.Now().UTC()
	completed := created.Add(time.Minute)
	mock.ExpectQuery("SELECT id, window_start, window_end, status, entity_count, created_at, completed_at FROM report_runs").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "window_start", "window_end", "status", "entity_count", "created_at", "completed_at"}).
			AddRow("run-1", *date(2024, time.March, 1), *date(2024, time.March, 31), "complete", 3, created, &completed))

	got, err := st.ListRuns(context.Background(), 0) // zero limit falls back to default
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.RunStatusComplete, got[0].Status)
	assert.Equal(t, 3, got[0].EntityCount)
	require.NotNil(t, got[0].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
