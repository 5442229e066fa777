package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/inventory"
	"github.com/HerbHall/devwatch/internal/testutil"
	"github.com/HerbHall/devwatch/pkg/models"
)

func seededServer(t *testing.T) (*Server, *inventory.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	st := inventory.NewMemoryStore()

	office := &models.DeviceGroup{ID: "grp-office", Name: "Office"}
	if err := st.CreateGroup(ctx, office); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	devices := []models.Device{
		testutil.NewDevice(testutil.WithID("dev-1"), testutil.WithName("alpha"),
			testutil.WithGroup("grp-office"), testutil.WithOnline(true), testutil.WithCategory(models.CategoryRouter)),
		testutil.NewDevice(testutil.WithID("dev-2"), testutil.WithName("beta"),
			testutil.WithGroup("grp-office"), testutil.WithCategory(models.CategoryPrinter)),
		testutil.NewDevice(testutil.WithID("dev-3"), testutil.WithName("gamma"), testutil.WithOnline(true),
			testutil.WithCategory(models.CategoryPrinter)),
		// References a group that does not exist.
		testutil.NewDevice(testutil.WithID("dev-4"), testutil.WithName("delta"), testutil.WithGroup("grp-gone")),
	}
	for i := range devices {
		if err := st.CreateDevice(ctx, &devices[i]); err != nil {
			t.Fatalf("CreateDevice: %v", err)
		}
	}

	return New(DefaultConfig(), st, zap.NewNop(), nil), st
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
	return w
}

func TestHandleListDevices(t *testing.T) {
	srv, _ := seededServer(t)

	w := get(t, srv, "/api/v1/devices")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var devices []models.Device
	if err := json.NewDecoder(w.Body).Decode(&devices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(devices) != 4 {
		t.Fatalf("len(devices) = %d, want 4", len(devices))
	}
	if devices[0].Name != "alpha" || !devices[0].IsOnline {
		t.Errorf("devices[0] = %+v", devices[0])
	}
}

func TestHandleListDevices_CategoryFilter(t *testing.T) {
	srv, _ := seededServer(t)

	w := get(t, srv, "/api/v1/devices?category=printer")
	var devices []models.Device
	if err := json.NewDecoder(w.Body).Decode(&devices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("len(printers) = %d, want 2", len(devices))
	}

	w = get(t, srv, "/api/v1/devices?category=camera")
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("empty category body = %q, want []", body)
	}

	w = get(t, srv, "/api/v1/devices?category=toaster")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q", ct)
	}
}

func TestHandleGetDevice(t *testing.T) {
	srv, st := seededServer(t)

	w := get(t, srv, "/api/v1/devices/dev-3")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var d models.Device
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Name != "gamma" {
		t.Errorf("name = %q", d.Name)
	}

	_ = st.DeleteDevice(context.Background(), "dev-3")
	w = get(t, srv, "/api/v1/devices/dev-3")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", w.Code)
	}
	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Type != ProblemTypeNotFound || p.Instance != "/api/v1/devices/dev-3" {
		t.Errorf("problem = %+v", p)
	}
}

func TestHandleListGroups(t *testing.T) {
	srv, _ := seededServer(t)

	w := get(t, srv, "/api/v1/groups")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp GroupsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(resp.Groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(resp.Groups))
	}
	office := resp.Groups[0]
	if office.ID != "grp-office" || office.DeviceCount != 2 || office.OnlineCount != 1 {
		t.Errorf("office = %+v", office)
	}
	if resp.Ungrouped.ID != "ungrouped" || resp.Ungrouped.DeviceCount != 2 {
		t.Errorf("ungrouped = %+v, want dev-3 and the dangling dev-4", resp.Ungrouped)
	}
}

func TestHandleListCategories(t *testing.T) {
	srv, _ := seededServer(t)

	w := get(t, srv, "/api/v1/categories")
	var resp []CategoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != len(models.Categories) {
		t.Fatalf("len = %d, want %d", len(resp), len(models.Categories))
	}
	for _, c := range resp {
		if c.Category == models.CategoryPrinter {
			if c.DeviceCount != 2 || c.OnlineCount != 1 || c.Icon != "printer" {
				t.Errorf("printer = %+v", c)
			}
		}
	}
}

type failingSource struct{}

func (failingSource) ListDevices(context.Context) ([]models.Device, error) {
	return nil, errors.New("disk I/O error")
}

func (failingSource) GetDevice(context.Context, string) (*models.Device, error) {
	return nil, errors.New("disk I/O error")
}

func (failingSource) ListGroups(context.Context) ([]models.DeviceGroup, error) {
	return nil, errors.New("disk I/O error")
}

func TestDeviceHandlers_StoreErrors(t *testing.T) {
	srv := New(DefaultConfig(), failingSource{}, zap.NewNop(), nil)

	for _, path := range []string{"/api/v1/devices", "/api/v1/devices/x", "/api/v1/groups", "/api/v1/categories"} {
		w := get(t, srv, path)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, w.Code)
		}
		var p Problem
		_ = json.NewDecoder(w.Body).Decode(&p)
		if p.Detail == "disk I/O error" {
			t.Errorf("%s: store error leaked to client", path)
		}
	}
}
