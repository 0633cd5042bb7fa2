package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobgrid/importer/internal/config"
)

type stubPublisher struct{}

func (stubPublisher) Publish(topic string, body []byte) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		FeedURLs:            []string{"https://a.example/feed"},
		WorkerConcurrency:   5,
		WorkerRatePerSecond: 10,
		DeadLetterRetention: 50,
		ServerPort:          8080,
	}
}

func newTestApp(t *testing.T) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a, err := New(testConfig(), db, stubPublisher{})
	require.NoError(t, err)
	return a, mock
}

func TestApp_Health(t *testing.T) {
	a, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestApp_CORSPreflight(t *testing.T) {
	a, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/imports", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_SetsCorrelationHeader(t *testing.T) {
	a, mock := newTestApp(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM import_runs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT (.+) FROM import_runs`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodGet, "/imports", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestApp_UnknownRoute(t *testing.T) {
	a, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
