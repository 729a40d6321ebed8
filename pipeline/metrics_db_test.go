package pipeline

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/clients"
)

func TestSendDBMetrics(t *testing.T) {
	require := require.New(t)

	db, dbMock, err := sqlmock.New()
	require.NoError(err)
	defer db.Close()

	coord := &Coordinator{MetricsDB: db}
	req := CutRequest{
		URL:         "https://example.com/source.mp4",
		VideoTitle:  "My Video",
		Segments:    []ClipSpec{{ID: "a", StartS: 1, EndS: 2}, {ID: "b", StartS: 3, EndS: 4}},
		CropMode:    clients.CropCenter,
		Captions:    true,
		TranslateTo: "es",
		Quality:     720,
	}
	startTime := time.Now().Add(-2 * time.Second)

	dbMock.
		ExpectExec(`insert into "clip_jobs_completed".*`).
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			"req-1", "job-1",
			"https://example.com/source.mp4", "My Video",
			2, 1, 1, true, "es", 720,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	coord.sendDBMetrics("req-1", "job-1", req, 1, 1, startTime)

	require.NoError(dbMock.ExpectationsWereMet())
}

func TestSendDBMetricsNilDB(t *testing.T) {
	coord := &Coordinator{}
	// Must not panic when no metrics sink is configured.
	coord.sendDBMetrics("req-1", "job-1", CutRequest{}, 0, 0, time.Now())
}
