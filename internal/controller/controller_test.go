package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"order-tracking-service/internal/dto"
	"order-tracking-service/internal/middleware"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/repository"
	"order-tracking-service/internal/service"
	"order-tracking-service/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "test-operator-token"

// byFilename resolves through the filename guesser only, like a deployment
// with no recognition backend.
type byFilename struct{}

func (byFilename) Resolve(_ context.Context, _ image.Image, filename, hint string) recognition.Resolution {
	if hint = strings.TrimSpace(hint); hint != "" {
		return recognition.Resolution{Code: strings.ToUpper(hint), Source: recognition.SourceHint}
	}
	if code := recognition.GuessFromFilename(filename); code != "" {
		return recognition.Resolution{Code: code, Source: recognition.SourceFilename}
	}
	return recognition.Resolution{NeedsReview: true}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.OpenSQLite(fmt.Sprintf("file:ctl_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := repository.NewGormOrderRepository(db)
	require.NoError(t, repo.Migrate())

	store, err := upload.NewStore(t.TempDir(), "/static/uploads")
	require.NoError(t, err)

	ctl := NewOrderController(service.NewOrderService(repo, byFilename{}), store)
	r := gin.New()
	Register(r, ctl, middleware.AuthMiddleware(service.NewAuthService("", token)))
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pngFile(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < 16; i++ {
		img.Set(i, i, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func doMultipart(t *testing.T, r *gin.Engine, path string, fields map[string]string, fileField string, files ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range files {
		fw, err := mw.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = fw.Write(pngFile(t))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestOrderLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/orders", dto.CreateOrderRequest{Code: "cust001"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "CUST001", decode[dto.OrderResponse](t, w).Code)

	w = do(r, http.MethodPost, "/orders", dto.CreateOrderRequest{Code: "CUST001"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/admin/aliases", dto.AliasRequest{OrderCode: "CUST001", AliasCode: "jte0012345678", Carrier: "jt"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/orders", dto.CreateOrderRequest{Code: "JTE0012345678"})
	assert.Equal(t, http.StatusConflict, w.Code, "an alias code cannot become an order")

	w = do(r, http.MethodPost, "/orders/JTE0012345678/set-status", dto.SetStatusRequest{NewStatus: model.StatusInTransitIR})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StatusInTransitIR, decode[dto.OrderResponse](t, w).Status)

	w = do(r, http.MethodPost, "/orders/CUST001/set-status", dto.SetStatusRequest{NewStatus: "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/u/jte0012345678", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tr := decode[dto.TrackResponse](t, w)
	assert.Equal(t, "CUST001", tr.Code)
	assert.Equal(t, model.StatusInTransitIR, tr.Status)

	w = do(r, http.MethodGet, "/admin/aliases/CUST001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.AliasResponse](t, w), 1)

	w = do(r, http.MethodGet, "/admin/orders/status/"+model.StatusInTransitIR, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Order](t, w), 1)
}

func TestTrackNotFound(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/track?code=nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[dto.TrackResponse](t, w).Status)

	w = do(r, http.MethodGet, "/track", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"code":"X1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestManualAttach(t *testing.T) {
	r := newTestRouter(t)

	w := doMultipart(t, r, "/manual-attach", map[string]string{"code": "new001"}, "file", "photo.jpg")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[dto.OrderResponse](t, w)
	assert.Equal(t, "NEW001", res.Code)
	assert.Equal(t, model.ArrivedStatus, res.Status)
	assert.True(t, strings.HasPrefix(res.Image, "/static/uploads/"))

	w = doMultipart(t, r, "/manual-attach", map[string]string{"code": "  "}, "file", "photo.jpg")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestImage(t *testing.T) {
	r := newTestRouter(t)

	t.Run("hint creates the order", func(t *testing.T) {
		w := doMultipart(t, r, "/ingest-image", map[string]string{"hint": "cust009", "status": model.StatusArrivedTEH}, "file", "x.png")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[dto.IngestResponse](t, w)
		assert.True(t, res.OK)
		assert.Equal(t, "CUST009", res.Code)
		assert.Equal(t, model.StatusArrivedTEH, res.Status)
		assert.Equal(t, string(recognition.SourceHint), res.Source)
	})

	t.Run("unmapped detected code needs review", func(t *testing.T) {
		w := doMultipart(t, r, "/ingest-image", nil, "file", "scan jte0099999999.png")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[dto.IngestResponse](t, w)
		assert.False(t, res.OK)
		assert.True(t, res.NeedsReview)
		assert.Equal(t, service.ReasonAliasNotMapped, res.Reason)
		assert.Equal(t, "JTE0099999999", res.DetectedCode)
	})

	t.Run("nothing detected", func(t *testing.T) {
		w := doMultipart(t, r, "/ingest-image", nil, "file", "package_photo.jpg")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[dto.IngestResponse](t, w)
		assert.True(t, res.NeedsReview)
		assert.Equal(t, service.ReasonCodeNotFound, res.Reason)
	})

	t.Run("file is required", func(t *testing.T) {
		w := doMultipart(t, r, "/ingest-image", map[string]string{"hint": "X"}, "file")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUploadMany(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/orders", dto.CreateOrderRequest{Code: "CUST001"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doMultipart(t, r, "/upload-many", map[string]string{"status": model.StatusArrivedTEH}, "files",
		"cust001.jpg", "package_photo.jpg", "scan 1234567890123.jpeg")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[dto.IngestManyResponse](t, w)
	assert.Equal(t, dto.IngestSummary{Total: 3, Succeeded: 1, NeedsReview: 2}, res.Summary)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "CUST001", res.Results[0].Code)
	assert.Equal(t, model.StatusArrivedTEH, res.Results[0].Status)
	assert.Equal(t, service.ReasonCodeNotFound, res.Results[1].Reason)
	assert.Equal(t, "1234567890123", res.Results[2].DetectedCode)
}

func TestBulkUpdateStatus(t *testing.T) {
	r := newTestRouter(t)

	for _, code := range []string{"A1", "A2"} {
		require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/orders", dto.CreateOrderRequest{Code: code}).Code)
	}
	today := time.Now().UTC().Format(dateLayout)

	w := do(r, http.MethodPost, "/admin/bulk-update-status", dto.BulkUpdateRequest{
		StartDate:    today,
		EndDate:      today,
		NewStatus:    model.StatusArrivedDXB,
		ExcludeCodes: []string{"a2"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[dto.BulkUpdateResponse](t, w)
	assert.Equal(t, 1, res.UpdatedCount)
	assert.Equal(t, []string{"A1"}, res.AffectedCodes)

	w = do(r, http.MethodPost, "/admin/bulk-update-status", dto.BulkUpdateRequest{StartDate: "03/01/2024", EndDate: today, NewStatus: model.StatusArrivedDXB})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/admin/bulk-update-status", dto.BulkUpdateRequest{StartDate: today, EndDate: today, NewStatus: "NOPE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
