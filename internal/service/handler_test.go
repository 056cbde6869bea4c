package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lptrack/internal/config"
	"lptrack/internal/export"
	"lptrack/internal/store"
)

func newTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir(),
		Name:   "test",
	}
	s, err := store.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Bootstrap(context.Background()))

	h := NewHandler(s, export.NewExporter(s, t.TempDir()), zerolog.Nop())
	app := fiber.New()
	RegisterRoutes(app, h)
	return app, s
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func doList(t *testing.T, app *fiber.App, path string) (*http.Response, []map[string]any) {
	t.Helper()

	req, err := http.NewRequest("GET", path, nil)
	require.NoError(t, err)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	return resp, rows
}

func createLP(t *testing.T, app *fiber.App, shortName string) {
	t.Helper()
	resp, _ := doJSON(t, app, "POST", "/api/data/lplookup", map[string]any{
		"short_name": shortName,
		"active":     "Yes",
	})
	require.Equal(t, 200, resp.StatusCode)
}

func TestUnknownEntityReturns404(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/api/data/nonexistent", nil)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Contains(t, body["detail"], "nonexistent")
}

func TestListEmptyTableReturnsEmptyArray(t *testing.T) {
	app, _ := newTestApp(t)

	resp, rows := doList(t, app, "/api/data/lplookup")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, rows)
}

func TestCreateAndGetLP(t *testing.T) {
	app, _ := newTestApp(t)

	resp, created := doJSON(t, app, "POST", "/api/data/lplookup", map[string]any{
		"short_name":     "ABC",
		"active":         "Yes",
		"source":         "Referral",
		"effective_date": "2023-01-15",
	})
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ABC", created["short_name"])
	assert.Equal(t, "2023-01-15", created["effective_date"])

	resp, fetched := doJSON(t, app, "GET", "/api/data/lplookup/ABC", nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Referral", fetched["source"])
}

func TestCreateDuplicateLPReturns400(t *testing.T) {
	app, _ := newTestApp(t)
	createLP(t, app, "ABC")

	resp, body := doJSON(t, app, "POST", "/api/data/lplookup", map[string]any{
		"short_name": "ABC",
	})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "LP with this short_name already exists", body["detail"])
}

func TestCreateMissingRequiredFieldReturns400(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/data/lplookup", map[string]any{
		"active": "Yes",
	})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Field 'short_name' is required", body["detail"])
}

func TestCreateFundForMissingLPReturns400(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/data/lpfund", map[string]any{
		"lp_short_name": "GHOST",
		"fund_name":     "Fund I",
	})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "LP with short_name 'GHOST' does not exist", body["detail"])
}

func TestCreateFundAssignsID(t *testing.T) {
	app, _ := newTestApp(t)
	createLP(t, app, "ABC")

	resp, created := doJSON(t, app, "POST", "/api/data/lpfund", map[string]any{
		"lp_short_name":  "ABC",
		"fund_name":      "Fund I",
		"term":           float64(5),
		"management_fee": 0.02,
	})
	require.Equal(t, 200, resp.StatusCode)
	assert.NotNil(t, created["id"])
	assert.Equal(t, float64(5), created["term"])
}

func TestUpdateLPByOriginalIdentifier(t *testing.T) {
	app, _ := newTestApp(t)
	createLP(t, app, "ABC")

	resp, updated := doJSON(t, app, "PUT", "/api/data/lplookup/ABC", map[string]any{
		"short_name": "XYZ",
		"active":     "No",
	})
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "XYZ", updated["short_name"])

	resp, _ = doJSON(t, app, "GET", "/api/data/lplookup/ABC", nil)
	assert.Equal(t, 404, resp.StatusCode)
	resp, _ = doJSON(t, app, "GET", "/api/data/lplookup/XYZ", nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestUpdateMissingRecordReturns404(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "PUT", "/api/data/lplookup/NOPE", map[string]any{
		"short_name": "NOPE",
	})
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "LP not found", body["detail"])
}

func TestDeleteReturns204(t *testing.T) {
	app, _ := newTestApp(t)
	createLP(t, app, "ABC")

	resp, _ := doJSON(t, app, "DELETE", "/api/data/lplookup/ABC", nil)
	assert.Equal(t, 204, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/api/data/lplookup/ABC", nil)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestDeleteMissingRecordReturns404(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "DELETE", "/api/data/ledger/999", nil)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "Ledger entry not found", body["detail"])
}

func TestLedgerCreateAllowsNullSubActivity(t *testing.T) {
	app, _ := newTestApp(t)

	resp, created := doJSON(t, app, "POST", "/api/data/ledger", map[string]any{
		"entry_date":     "2024-01-10",
		"activity_date":  "2024-01-10",
		"effective_date": "2024-01-10",
		"activity":       "Capital Call",
		"sub_activity":   nil,
		"amount":         250000.0,
		"entity_from":    "ABC",
		"entity_to":      "Fund I",
		"related_entity": "ABC",
		"related_fund":   "Fund I",
	})
	require.Equal(t, 200, resp.StatusCode)
	assert.Nil(t, created["sub_activity"])
	assert.Equal(t, 250000.0, created["amount"])
}

func TestExportInvalidTableReturns400(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/data/export/bogus", nil)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Invalid table name", body["detail"])
}

func TestExportTableReportsSuccess(t *testing.T) {
	app, _ := newTestApp(t)
	createLP(t, app, "ABC")

	resp, body := doJSON(t, app, "POST", "/api/data/export/lplookup", nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, body["message"], "lplookup")
}
