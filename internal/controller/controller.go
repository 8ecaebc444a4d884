package controller

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"order-tracking-service/internal/dto"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/service"
	"order-tracking-service/internal/upload"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type OrderController struct {
	Service *service.OrderService
	Uploads *upload.Store
}

func NewOrderController(s *service.OrderService, uploads *upload.Store) *OrderController {
	return &OrderController{Service: s, Uploads: uploads}
}

// errorStatus maps business errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrAliasShadowsOrder):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrEmptyCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

func orderResponse(o *model.Order) dto.OrderResponse {
	return dto.OrderResponse{OK: true, Code: o.Code, Status: o.Status, Image: o.ImagePath}
}

// GET /health
func (ctl *OrderController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /track?code= and GET /u/:code (public)
func (ctl *OrderController) Track(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		code = c.Query("code")
	}
	code = recognition.NormalizeCode(code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": service.ErrEmptyCode.Error()})
		return
	}

	o, err := ctl.Service.Track(c.Request.Context(), code)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, dto.TrackResponse{
			Code:    code,
			Status:  "NOT_FOUND",
			Message: "no order or alias matches this code",
		})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	updated := o.UpdatedAt
	c.JSON(http.StatusOK, dto.TrackResponse{
		Code:      o.Code,
		Status:    o.Status,
		Image:     o.ImagePath,
		UpdatedAt: &updated,
	})
}

// POST /orders (operator)
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	o, err := ctl.Service.CreateOrder(c.Request.Context(), req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderResponse(o))
}

// POST /orders/:code/set-status (operator)
func (ctl *OrderController) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	o, err := ctl.Service.SetStatus(c.Request.Context(), c.Param("code"), req.NewStatus)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(o))
}

// POST /manual-attach (operator, multipart: code, status, file)
func (ctl *OrderController) ManualAttach(c *gin.Context) {
	code := recognition.NormalizeCode(c.PostForm("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": service.ErrEmptyCode.Error()})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file is required"})
		return
	}

	saved, err := ctl.save(fh)
	if err != nil {
		writeError(c, err)
		return
	}

	o, err := ctl.Service.AttachImage(c.Request.Context(), code, saved.URL, c.PostForm("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(o))
}

// POST /ingest-image (operator, multipart: file, hint, status)
func (ctl *OrderController) IngestImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file is required"})
		return
	}

	in := ctl.ingestInput(fh, c.PostForm("hint"), c.PostForm("status"))
	res := ctl.Service.Ingest(c.Request.Context(), in)

	status := http.StatusOK
	if res.Err != nil {
		status = errorStatus(res.Err)
	}
	c.JSON(status, ingestResponse(res))
}

// POST /upload-many (operator, multipart: files[], status)
func (ctl *OrderController) UploadMany(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "files are required"})
		return
	}

	status := c.PostForm("status")
	inputs := make([]service.IngestInput, 0, len(files))
	for _, fh := range files {
		inputs = append(inputs, ctl.ingestInput(fh, "", status))
	}

	results, summary := ctl.Service.IngestMany(c.Request.Context(), inputs)

	out := dto.IngestManyResponse{
		Summary: dto.IngestSummary{
			Total:       summary.Total,
			Succeeded:   summary.Succeeded,
			NeedsReview: summary.NeedsReview,
		},
		Results: make([]dto.IngestResponse, 0, len(results)),
	}
	for _, r := range results {
		out.Results = append(out.Results, ingestResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

func (ctl *OrderController) save(fh *multipart.FileHeader) (*upload.Saved, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ctl.Uploads.Save(fh.Filename, f)
}

// ingestInput stores and decodes one upload. A photo that does not decode is
// still ingested: the hint and the filename may resolve it.
func (ctl *OrderController) ingestInput(fh *multipart.FileHeader, hint, status string) service.IngestInput {
	in := service.IngestInput{Filename: fh.Filename, Hint: hint, Status: status}

	saved, err := ctl.save(fh)
	if err != nil {
		slog.Error("upload could not be stored", "file", fh.Filename, "error", err)
		in.Err = err
		return in
	}
	in.ImagePath = saved.URL

	img, err := upload.OpenImage(saved.Path)
	if err != nil {
		slog.Warn("upload is not a decodable image", "file", fh.Filename, "error", err)
		return in
	}
	in.Image = img
	return in
}

func ingestResponse(r service.IngestResult) dto.IngestResponse {
	out := dto.IngestResponse{
		File:         r.Filename,
		OK:           r.OK(),
		NeedsReview:  r.NeedsReview,
		DetectedCode: r.DetectedCode,
		Source:       string(r.Source),
		Reason:       r.Reason,
	}
	if r.Order != nil {
		out.Code = r.Order.Code
		out.Status = r.Order.Status
		out.Image = r.Order.ImagePath
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// POST /admin/aliases (admin)
func (ctl *OrderController) RegisterAlias(c *gin.Context) {
	var req dto.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	a, err := ctl.Service.RegisterAlias(c.Request.Context(), req.OrderCode, req.AliasCode, req.Carrier)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AliasResponse{
		OK:        true,
		OrderCode: a.OrderCode,
		AliasCode: a.AliasCode,
		Carrier:   a.Carrier,
	})
}

// GET /admin/aliases/:code (admin)
func (ctl *OrderController) ListAliases(c *gin.Context) {
	aliases, err := ctl.Service.ListAliases(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.AliasResponse, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, dto.AliasResponse{OK: true, OrderCode: a.OrderCode, AliasCode: a.AliasCode, Carrier: a.Carrier})
	}
	c.JSON(http.StatusOK, out)
}

// POST /admin/bulk-update-status (admin)
func (ctl *OrderController) BulkUpdateStatus(c *gin.Context) {
	var req dto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	start, err := time.Parse(dateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(req.EndDate))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "end_date must be YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "end_date is before start_date"})
		return
	}

	res, err := ctl.Service.BulkSetStatus(c.Request.Context(), start, end, req.NewStatus, req.ExcludeCodes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BulkUpdateResponse{
		OK:            true,
		UpdatedCount:  res.UpdatedCount,
		NewStatus:     req.NewStatus,
		AffectedCodes: res.AffectedCodes,
	})
}

// GET /admin/orders (admin)
func (ctl *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := ctl.Service.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /admin/orders/status/:status (admin)
func (ctl *OrderController) GetOrdersByStatus(c *gin.Context) {
	orders, err := ctl.Service.GetByStatus(c.Request.Context(), strings.ToUpper(c.Param("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}
