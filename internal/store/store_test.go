package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordconv/internal/pipeline"
	"coordconv/internal/transform"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return AttachDB(db), mock
}

func TestCreateJob(t *testing.T) {
	st, mock := newMock(t)
	job := pipeline.Job{Files: []string{"a.csv", "b.csv"}, OutputDir: "/out", LngCol: "lng", LatCol: "lat", Direction: transform.BD09ToGCJ02}
	mock.ExpectExec("INSERT INTO _coord_jobs").
		WithArgs("j1", "bd09-gcj02", "/out", "lng", "lat", 2, StatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.CreateJob(context.Background(), "j1", job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFileIgnoresProgress(t *testing.T) {
	st, mock := newMock(t)
	require.NoError(t, st.RecordFile(context.Background(), "j1", pipeline.Event{Kind: pipeline.EventProgress, Percent: 50}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObserverRecordsFilesAndFinish(t *testing.T) {
	st, mock := newMock(t)
	mock.ExpectExec("INSERT INTO _coord_job_files").
		WithArgs("j1", 0, "a.csv", true, "/out/converted_a.csv", 3, 1, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO _coord_job_files").
		WithArgs("j1", 1, "b.csv", false, "", 0, 0, "boom").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE _coord_jobs SET status").
		WithArgs("j1", StatusCancelled, 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	o := st.Observer("j1")
	o.OnEvent(pipeline.Event{Kind: pipeline.EventProgress, Index: 0, Percent: 50})
	o.OnEvent(pipeline.Event{Kind: pipeline.EventFileSucceeded, Index: 0, File: "a.csv", Output: "/out/converted_a.csv", Rows: 3, Failed: 1})
	o.OnEvent(pipeline.Event{Kind: pipeline.EventFileFailed, Index: 1, File: "b.csv", Reason: "boom"})
	o.OnEvent(pipeline.Event{Kind: pipeline.EventFinished, Index: 2, Cancelled: true})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObserverSwallowsWriteErrors(t *testing.T) {
	st, mock := newMock(t)
	mock.ExpectExec("UPDATE _coord_jobs SET status").
		WithArgs("j2", StatusDone, 0, 0).
		WillReturnError(errors.New("db down"))

	assert.NotPanics(t, func() {
		st.Observer("j2").OnEvent(pipeline.Event{Kind: pipeline.EventFinished})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentJobs(t *testing.T) {
	st, mock := newMock(t)
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	finished := created.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"id", "direction", "output_dir", "files", "status", "succeeded", "failed", "created_at", "finished_at"}).
		AddRow("j2", "gcj02-wgs84", "/out", 1, StatusRunning, 0, 0, created, nil).
		AddRow("j1", "wgs84-bd09", "/out", 2, StatusDone, 2, 0, created, finished)
	mock.ExpectQuery("SELECT id, direction").WithArgs(20).WillReturnRows(rows)

	got, err := st.RecentJobs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "j2", got[0].ID)
	assert.Nil(t, got[0].FinishedAt)
	require.NotNil(t, got[1].FinishedAt)
	assert.Equal(t, finished, *got[1].FinishedAt)
	assert.Equal(t, 2, got[1].Succeeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}
