package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/server/internal/eventstream"
)

func TestListClientsReturnsEmptyWhenNoneConnected(t *testing.T) {
	mgr := controller.New(controller.DefaultConfig(), controller.NopSink{}, zap.NewNop())
	hub := eventstream.NewHub()
	router := NewRouter(RouterConfig{Manager: mgr, Hub: hub, Logger: zap.NewNop()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"items":[],"total":0,"page":{"limit":50,"offset":0}}}`, rec.Body.String())
}

func TestGetClientByIDNotFound(t *testing.T) {
	mgr := controller.New(controller.DefaultConfig(), controller.NopSink{}, zap.NewNop())
	hub := eventstream.NewHub()
	router := NewRouter(RouterConfig{Manager: mgr, Hub: hub, Logger: zap.NewNop()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInstallRequiresFilePath(t *testing.T) {
	mgr := controller.New(controller.DefaultConfig(), controller.NopSink{}, zap.NewNop())
	hub := eventstream.NewHub()
	router := NewRouter(RouterConfig{Manager: mgr, Hub: hub, Logger: zap.NewNop()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/abc/install", strings.NewReader(`{"filePath":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstallOnDisconnectedClientReturnsConflict(t *testing.T) {
	mgr := controller.New(controller.DefaultConfig(), controller.NopSink{}, zap.NewNop())
	hub := eventstream.NewHub()
	router := NewRouter(RouterConfig{Manager: mgr, Hub: hub, Logger: zap.NewNop()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/abc/install", strings.NewReader(`{"filePath":"/tmp/installer.exe"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "client_unreachable")
}

func TestPaginateSlicesWithinBounds(t *testing.T) {
	all := make([]controller.Snapshot, 5)
	for i := range all {
		all[i] = controller.Snapshot{ComputerName: string(rune('A' + i))}
	}

	assert.Len(t, paginate(all, 0, 2), 2)
	assert.Equal(t, "A", paginate(all, 0, 2)[0].ComputerName)

	assert.Len(t, paginate(all, 3, 10), 2)
	assert.Equal(t, "D", paginate(all, 3, 10)[0].ComputerName)

	assert.Empty(t, paginate(all, 10, 5))
}

func TestQueryIntOrDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&offset=bad", nil)
	assert.Equal(t, 20, queryIntOrDefault(req, "limit", 50))
	assert.Equal(t, 0, queryIntOrDefault(req, "offset", 0))
	assert.Equal(t, 50, queryIntOrDefault(req, "missing", 50))
}
