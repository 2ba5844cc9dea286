package repositories

import (
	"context"
	"database/sql"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/platform/db"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSqlite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, InitSchema(conn))
	return conn
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, InitSchema(conn))
}

func TestSqliteReportRepositoryRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSqliteReportRepository(conn)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	in := []domain.PositionReport{
		{ID: "r2", SubjectKey: "order-1", Coordinate: domain.Coordinates{Lon: 114.001, Lat: 22.501}, Timestamp: base.Add(time.Minute), Status: domain.StatusInTransit},
		{ID: "r1", SubjectKey: "order-1", Coordinate: domain.Coordinates{Lon: 114.000, Lat: 22.500}, Timestamp: base, Status: domain.StatusPickup},
		{ID: "x1", SubjectKey: "order-2", Coordinate: domain.Coordinates{Lon: 113.9, Lat: 22.4}, Timestamp: base},
	}
	require.NoError(t, repo.InsertReports(ctx, in))

	subjects, err := repo.ListSubjects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"order-1", "order-2"}, subjects)

	got, err := repo.ListReports(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "r1", got[0].ID)
	require.Equal(t, "r2", got[1].ID)
	require.True(t, got[1].Timestamp.Equal(base.Add(time.Minute)))
	require.Equal(t, domain.StatusInTransit, got[1].Status)
	require.InDelta(t, 114.001, got[1].Coordinate.Lon, 1e-9)
}

func TestSqliteReportRepositoryReplacesDuplicateID(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSqliteReportRepository(conn)
	ctx := context.Background()

	r := domain.PositionReport{ID: "r1", SubjectKey: "s", Coordinate: domain.Coordinates{Lon: 1, Lat: 1}, Timestamp: time.Unix(10, 0)}
	require.NoError(t, repo.InsertReports(ctx, []domain.PositionReport{r}))
	r.Coordinate.Lat = 2
	require.NoError(t, repo.InsertReports(ctx, []domain.PositionReport{r}))

	got, err := repo.ListReports(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 2.0, got[0].Coordinate.Lat)
}

func TestListReportsRejectsBlankSubject(t *testing.T) {
	repo := NewSqliteReportRepository(openTestDB(t))
	_, err := repo.ListReports(context.Background(), "  ")
	require.Error(t, err)
}

func TestLoadSeedReportsAndInsert(t *testing.T) {
	conn := openTestDB(t)
	path := filepath.Join(t.TempDir(), "reports.json")
	payload := `[
		{"report_id":"a","subject_key":"order-9","location":[114.0,22.5],"timestamp":"2026-03-01T09:00:00Z","status":"pickup"},
		{"subject_key":"order-9","location":[114.001,22.501],"timestamp":"2026-03-01T09:01:00Z"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	reports, err := LoadSeedReports(path)
	require.NoError(t, err)
	repo := NewSqliteReportRepository(conn)
	require.NoError(t, repo.InsertReports(context.Background(), reports))

	got, err := repo.ListReports(context.Background(), "order-9")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	// Reports without an id fall back to their coordinate key.
	require.Equal(t, "114.001000,22.501000", got[1].ID)
}

func TestLoadSeedReportsRejectsBadLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"subject_key":"s","location":[200,0]}]`), 0o600))

	_, err := LoadSeedReports(path)
	require.Error(t, err)
}
