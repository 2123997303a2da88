package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storekit/storekit/config"
	"github.com/storekit/storekit/internal/assetstore"
	"github.com/storekit/storekit/internal/domain"
	"github.com/storekit/storekit/internal/product"
)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	return newTestServerWithStore(t, assetstore.NewFilesystemStore(t.TempDir()))
}

func newTestServerWithStore(t *testing.T, store assetstore.Store) (*Server, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().AutoMigrate(domain.Tables...))

	repo := product.NewGormProductRepository(db)
	svc := product.NewService(repo, store, nil, 5<<20)

	cfg := config.DefaultAppConfig
	return NewServer(cfg, svc, repo), db
}

var pngSig = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}

func productForm(t *testing.T, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()
	return namedProductForm(t, "Widget", "1999", imageData)
}

func namedProductForm(t *testing.T, name, price string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("name", name))
	require.NoError(t, w.WriteField("description", "A "+strings.ToLower(name)))
	require.NoError(t, w.WriteField("price", price))

	fw, err := w.CreateFormFile("file", strings.ToLower(name)+".pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-12345"))
	require.NoError(t, err)

	iw, err := w.CreateFormFile("image", strings.ToLower(name)+".png")
	require.NoError(t, err)
	_, err = iw.Write(imageData)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func doRequest(t *testing.T, s *Server, method, target, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echoHeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createWidget(t *testing.T, s *Server) map[string]interface{} {
	t.Helper()
	body, ct := productForm(t, pngSig)
	rec := doRequest(t, s, http.MethodPost, "/admin/products", ct, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["data"].(map[string]interface{})
}

func TestCreateProductEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	data := createWidget(t, s)
	assert.Equal(t, "Widget", data["name"])
	assert.Equal(t, false, data["is_available_for_purchase"])
	assert.NotEmpty(t, data["file_path"])
	assert.NotEmpty(t, data["image_path"])
}

func TestCreateProductValidationError(t *testing.T) {
	s, _ := newTestServer(t)
	body, ct := productForm(t, []byte("%PDF-12345"))
	rec := doRequest(t, s, http.MethodPost, "/admin/products", ct, body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", out["code"])
	fields := out["data"].(map[string]interface{})
	assert.Contains(t, fields, "image")
}

func TestListProductsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createWidget(t, s)

	rec := doRequest(t, s, http.MethodGet, "/admin/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, float64(1), out["total"])
	rows := out["data"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "Widget", row["name"])
	assert.Equal(t, float64(0), row["order_count"])
}

func createNamed(t *testing.T, s *Server, name, price string) {
	t.Helper()
	body, ct := namedProductForm(t, name, price, pngSig)
	rec := doRequest(t, s, http.MethodPost, "/admin/products", ct, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func listNames(t *testing.T, s *Server, target string) []string {
	t.Helper()
	rec := doRequest(t, s, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := decodeBody(t, rec)["data"].([]interface{})
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.(map[string]interface{})["name"].(string))
	}
	return names
}

func TestListProductsNameFilter(t *testing.T) {
	s, _ := newTestServer(t)
	createNamed(t, s, "Widget", "1999")
	createNamed(t, s, "Gadget", "2999")
	createNamed(t, s, "Gizmo", "999")

	assert.Equal(t, []string{"Gizmo"}, listNames(t, s, "/admin/products?q=GIZ"))
	assert.Equal(t, []string{"Gadget", "Widget"}, listNames(t, s, "/admin/products?q=get"))
	assert.Empty(t, listNames(t, s, "/admin/products?q=nomatch"))
}

func TestListProductsSortWhitelist(t *testing.T) {
	s, _ := newTestServer(t)
	createNamed(t, s, "Widget", "1999")
	createNamed(t, s, "Gadget", "2999")
	createNamed(t, s, "Gizmo", "999")

	assert.Equal(t, []string{"Gizmo", "Widget", "Gadget"},
		listNames(t, s, "/admin/products?sort=price"))
	assert.Equal(t, []string{"Gadget", "Widget", "Gizmo"},
		listNames(t, s, "/admin/products?sort=price&order=DESC"))
	// Columns off the whitelist keep the canonical name ordering.
	assert.Equal(t, []string{"Gadget", "Gizmo", "Widget"},
		listNames(t, s, "/admin/products?sort=file_path"))
}

type flakyStore struct {
	assetstore.Store
	failPuts bool
}

func (s *flakyStore) Put(ctx context.Context, category, name string, data []byte) (string, error) {
	if s.failPuts {
		return "", fmt.Errorf("disk full")
	}
	return s.Store.Put(ctx, category, name, data)
}

func TestUpdateProductErrorCodes(t *testing.T) {
	store := &flakyStore{Store: assetstore.NewFilesystemStore(t.TempDir())}
	s, db := newTestServerWithStore(t, store)
	data := createWidget(t, s)
	id := data["id"].(string)

	store.failPuts = true
	body, ct := productForm(t, pngSig)
	rec := doRequest(t, s, http.MethodPut, "/admin/products/"+id, ct, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ASSET_IO_ERROR", decodeBody(t, rec)["code"])

	store.failPuts = false
	require.NoError(t, db.Migrator().DropTable(&domain.Product{}))
	body, ct = productForm(t, pngSig)
	rec = doRequest(t, s, http.MethodPut, "/admin/products/"+id, ct, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DATABASE_ERROR", decodeBody(t, rec)["code"])
}

func TestAvailabilityToggleEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	data := createWidget(t, s)
	id := data["id"].(string)

	payload := bytes.NewBufferString(`{"available": true}`)
	rec := doRequest(t, s, http.MethodPatch, "/admin/products/"+id+"/availability", "application/json", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/admin/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, got["is_available_for_purchase"])
}

func TestDeleteConflictEndpoint(t *testing.T) {
	s, db := newTestServer(t)
	data := createWidget(t, s)
	id := data["id"].(string)

	var pid int64
	_, err := fmt.Sscan(id, &pid)
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Order{ID: 1, ProductID: pid, CustomerID: 1, PricePaidInCents: 1999}).Error)

	rec := doRequest(t, s, http.MethodDelete, "/admin/products/"+id, "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeBody(t, rec)["code"])

	rec = doRequest(t, s, http.MethodGet, "/admin/products/"+id, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "record remains fetchable")
}

func TestDownloadEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	data := createWidget(t, s)
	id := data["id"].(string)

	rec := doRequest(t, s, http.MethodGet, "/admin/products/"+id+"/download", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Widget.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Equal(t, "%PDF-12345", rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/admin/products/999/download", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportProductsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createWidget(t, s)

	rec := doRequest(t, s, http.MethodGet, "/admin/products/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "name")
	assert.Contains(t, lines[1], "Widget")
}

func TestDashboardEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createWidget(t, s)

	rec := doRequest(t, s, http.MethodGet, "/admin/dashboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)["data"].(map[string]interface{})

	customers := out["customers"].(map[string]interface{})
	assert.Equal(t, float64(0), customers["user_count"])
	assert.Equal(t, float64(0), customers["average_revenue_per_user"])

	products := out["products"].(map[string]interface{})
	assert.Equal(t, float64(1), products["inactive_count"])

	cards := out["cards"].([]interface{})
	assert.Len(t, cards, 3)
}
