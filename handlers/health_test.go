package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/realm-guard/keycloak"
	"go.uber.org/zap"
)

type fakeKeySet struct {
	snapshot   *keycloak.SigningKeySet
	refreshErr error
	refreshed  int
}

func (f *fakeKeySet) Snapshot() *keycloak.SigningKeySet {
	return f.snapshot
}

func (f *fakeKeySet) Refresh(ctx context.Context) (*keycloak.SigningKeySet, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.snapshot = &keycloak.SigningKeySet{FetchedAt: time.Now()}
	return f.snapshot, nil
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeHealth(t, w)
	assert.Equal(t, "healthy", response.Status)
	assert.NotEmpty(t, response.Timestamp)
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("ready when keys load and no database is configured", func(t *testing.T) {
		keys := &fakeKeySet{}
		handler := NewHealthHandler(nil, keys, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeHealth(t, w)
		assert.Equal(t, "healthy", response.Checks["jwks"])
		assert.NotContains(t, response.Checks, "database")
		assert.Equal(t, 1, keys.refreshed)
	})

	t.Run("loaded snapshot is not refetched", func(t *testing.T) {
		keys := &fakeKeySet{snapshot: &keycloak.SigningKeySet{}}
		handler := NewHealthHandler(nil, keys, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, keys.refreshed)
	})

	t.Run("not ready when the realm is unreachable", func(t *testing.T) {
		keys := &fakeKeySet{refreshErr: keycloak.ErrJWKSFetchFailed}
		handler := NewHealthHandler(nil, keys, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		response := decodeHealth(t, w)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "unhealthy", response.Checks["jwks"])
	})

	t.Run("healthy database", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		handler := NewHealthHandler(db, &fakeKeySet{snapshot: &keycloak.SigningKeySet{}}, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decodeHealth(t, w).Checks["database"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database ping fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(sql.ErrConnDone)

		handler := NewHealthHandler(db, &fakeKeySet{snapshot: &keycloak.SigningKeySet{}}, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		response := decodeHealth(t, w)
		assert.Equal(t, "unhealthy", response.Checks["database"])
		assert.Equal(t, "healthy", response.Checks["jwks"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database query fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("relation does not exist"))

		handler := NewHealthHandler(db, nil, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
