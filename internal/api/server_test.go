package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/remindbot/internal/api"
	"github.com/Kerhoff/remindbot/internal/config"
	"github.com/Kerhoff/remindbot/internal/metrics"
	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/repository/sqlrepo"
	"github.com/Kerhoff/remindbot/internal/scheduler"
	"github.com/Kerhoff/remindbot/internal/service"
)

type nopNotifier struct{}

func (nopNotifier) Deliver(context.Context, int64, string) error { return nil }

func (nopNotifier) SendImage(context.Context, int64, string, string) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *service.Service, *scheduler.Scheduler) {
	t.Helper()
	logger, _ := test.NewNullLogger()

	db, err := config.NewDatabase("sqlite3://"+filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	now := func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local) }
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	reminders := sqlrepo.NewReminderRepository(db.DB, db.Driver)
	sched := scheduler.New(reminders, nopNotifier{}, logger, scheduler.WithClock(now), scheduler.WithMetrics(m))
	svc := service.New(logger, reminders, sqlrepo.NewPhotoRepository(db.DB, db.Driver), sched, service.WithClock(now))

	srv := httptest.NewServer(api.NewServer(svc, metrics.Handler(reg), logger).Handler())
	t.Cleanup(srv.Close)
	return srv, svc, sched
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type reminderJSON struct {
	ID         int64      `json:"id"`
	ChatID     int64      `json:"chat_id"`
	Text       string     `json:"text"`
	Hour       int        `json:"hour"`
	Minute     int        `json:"minute"`
	Recurrence string     `json:"recurrence"`
	NextFire   *time.Time `json:"next_fire"`
}

func TestCreateListDeleteReminder(t *testing.T) {
	srv, _, sched := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/reminders",
		`{"chat_id": 5, "text": "Buy milk", "time": "08:15", "recurrence": "weekdays"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created reminderJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Buy milk", created.Text)
	assert.Equal(t, "mon,tue,wed,thu,fri", created.Recurrence)
	require.NotNil(t, created.NextFire)
	assert.Equal(t, 1, sched.Len())

	resp = do(t, http.MethodGet, srv.URL+"/api/reminders?chat_id=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []reminderJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)

	resp = do(t, http.MethodGet, srv.URL+"/api/reminders?chat_id=6", "")
	list = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/api/reminders/%d?chat_id=6", srv.URL, created.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/api/reminders/%d?chat_id=5", srv.URL, created.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, sched.Len())
}

func TestCreateReminder_Validation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := []string{
		`{"chat_id": 5, "text": "", "time": "08:15", "recurrence": "daily"}`,
		`{"chat_id": 5, "text": "x", "time": "8.15", "recurrence": "daily"}`,
		`{"chat_id": 5, "text": "x", "time": "08:15", "recurrence": "sometimes"}`,
		`{"chat_id": 5, "text": "x", "time": "08:15"}`,
		`{"text": "x", "time": "08:15", "recurrence": "daily"}`,
		`not json`,
	}
	for _, body := range cases {
		resp := do(t, http.MethodPost, srv.URL+"/api/reminders", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestUpdateReminder(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	created, err := svc.CreateReminder(context.Background(), models.Reminder{
		ChatID: 5, Text: "Run", Hour: 7, Recurrence: models.Weekly(models.Weekdays),
	})
	require.NoError(t, err)

	url := fmt.Sprintf("%s/api/reminders/%d?chat_id=5", srv.URL, created.ID)
	resp := do(t, http.MethodPatch, url, `{"time": "11:30", "recurrence": "once"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated reminderJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, 11, updated.Hour)
	assert.Equal(t, "once", updated.Recurrence)
	require.NotNil(t, updated.NextFire)
	assert.True(t, time.Date(2025, 1, 15, 11, 30, 0, 0, time.Local).Equal(*updated.NextFire))

	resp = do(t, http.MethodPatch, url, `{"time": "99:00"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSchedule(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	_, err := svc.CreateReminder(context.Background(), models.Reminder{
		ChatID: 5, Text: "Weekend", Hour: 9, Recurrence: models.Weekly(models.Weekend),
	})
	require.NoError(t, err)

	resp := do(t, http.MethodGet, srv.URL+"/api/schedule?chat_id=5&period=month", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view models.ScheduleView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, models.ScheduleMonth, view.Period)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, 4, view.Entries[0].Occurrences)

	resp = do(t, http.MethodGet, srv.URL+"/api/schedule?chat_id=5&period=year", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/schedule", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPhotos(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	_, err := svc.SavePhoto(context.Background(), 5, "file-1", models.PeriodDay)
	require.NoError(t, err)

	resp := do(t, http.MethodGet, srv.URL+"/api/photos?chat_id=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var photos []models.SchedulePhoto
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&photos))
	require.Len(t, photos, 1)
	assert.Equal(t, "file-1", photos[0].ImageRef)

	resp = do(t, http.MethodGet, srv.URL+"/api/photos?chat_id=6", "")
	photos = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&photos))
	assert.NotNil(t, photos)
	assert.Empty(t, photos)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	do(t, http.MethodPost, srv.URL+"/api/reminders",
		`{"chat_id": 5, "text": "Tea", "time": "16:00", "recurrence": "daily"}`)

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "remindbot_scheduler_jobs_armed 1")
}
