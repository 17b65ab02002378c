package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurpe/amc-schedule/internal/batch"
	"github.com/nurpe/amc-schedule/internal/events"
	"github.com/nurpe/amc-schedule/internal/http/middleware"
	"github.com/nurpe/amc-schedule/internal/importer"
	"github.com/nurpe/amc-schedule/internal/model"
	"github.com/nurpe/amc-schedule/internal/schedule"
	"github.com/nurpe/amc-schedule/internal/service"
)

const roleViewer = "viewer"

type Handler struct {
	schedules *service.ScheduleService
	payments  *service.PaymentService
	exports   *service.ExportService
	log       zerolog.Logger
}

func NewHandler(schedules *service.ScheduleService, payments *service.PaymentService, exports *service.ExportService, log zerolog.Logger) *Handler {
	return &Handler{schedules: schedules, payments: payments, exports: exports, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/settings", h.defaultSettings)

	protected.POST("/amc/calculate", h.calculateAMC)
	protected.POST("/amc/batch", h.amcBatch)
	protected.POST("/amc/batch/stream", h.amcBatchStream)
	protected.POST("/amc/import", h.importAMC)
	protected.POST("/amc/export/:format", h.export(model.KindAMC))

	protected.POST("/warranty/calculate", h.calculateWarranty)
	protected.POST("/warranty/batch", h.warrantyBatch)
	protected.POST("/warranty/batch/stream", h.warrantyBatchStream)
	protected.POST("/warranty/import", h.importWarranty)
	protected.POST("/warranty/export/:format", h.export(model.KindWarranty))

	protected.GET("/batches/:fingerprint", h.storedBatch)
	protected.DELETE("/batches/:fingerprint", h.invalidateBatch)

	protected.GET("/payments/:scope", h.listPayments)
	protected.PUT("/payments/:scope/:quarterKey", h.setPayment)
}

type calculateRequest[P any] struct {
	Product  *P              `json:"product"`
	Settings json.RawMessage `json:"settings"`
}

type batchRequest[P any] struct {
	Products *[]P            `json:"products"`
	Settings json.RawMessage `json:"settings"`
}

type batchResponse struct {
	BatchID     string                `json:"batchId"`
	Fingerprint string                `json:"fingerprint"`
	Cached      bool                  `json:"cached"`
	Results     []model.ProductResult `json:"results"`
	Summary     model.BatchSummary    `json:"summary"`
}

func newBatchResponse(out *service.BatchOutcome) batchResponse {
	return batchResponse{
		BatchID:     out.Record.BatchID,
		Fingerprint: out.Record.Fingerprint,
		Cached:      out.Cached,
		Results:     out.Record.Results,
		Summary:     out.Record.Summary,
	}
}

type streamMessage struct {
	events.Message
	Results []model.ProductResult `json:"results,omitempty"`
}

type paymentRequest struct {
	Paid bool   `json:"paid"`
	Date string `json:"date"`
}

type exportRequest struct {
	Results []model.ProductResult `json:"results"`
	Scope   string                `json:"scope"`
}

func (h *Handler) defaultSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.schedules.DefaultSettings())
}

func (h *Handler) calculateAMC(c *gin.Context) {
	var req calculateRequest[model.Product]
	settings, ok := h.bindCalculate(c, &req, &req.Settings)
	if !ok {
		return
	}
	if req.Product == nil {
		h.handleError(c, fmt.Errorf("%w: product is required", service.ErrInvalidInput))
		return
	}
	c.JSON(http.StatusOK, h.schedules.CalculateAMC(c.Request.Context(), *req.Product, settings))
}

func (h *Handler) calculateWarranty(c *gin.Context) {
	var req calculateRequest[model.WarrantyProduct]
	settings, ok := h.bindCalculate(c, &req, &req.Settings)
	if !ok {
		return
	}
	if req.Product == nil {
		h.handleError(c, fmt.Errorf("%w: product is required", service.ErrInvalidInput))
		return
	}
	c.JSON(http.StatusOK, h.schedules.CalculateWarranty(c.Request.Context(), *req.Product, settings))
}

func (h *Handler) amcBatch(c *gin.Context) {
	var req batchRequest[model.Product]
	settings, ok := h.bindCalculate(c, &req, &req.Settings)
	if !ok {
		return
	}
	if req.Products == nil {
		h.handleError(c, fmt.Errorf("%w: products are required", service.ErrMalformedBatch))
		return
	}
	out, err := h.schedules.RunAMCBatch(c.Request.Context(), *req.Products, settings, nil)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBatchResponse(out))
}

func (h *Handler) warrantyBatch(c *gin.Context) {
	var req batchRequest[model.WarrantyProduct]
	settings, ok := h.bindCalculate(c, &req, &req.Settings)
	if !ok {
		return
	}
	if req.Products == nil {
		h.handleError(c, fmt.Errorf("%w: products are required", service.ErrMalformedBatch))
		return
	}
	out, err := h.schedules.RunWarrantyBatch(c.Request.Context(), *req.Products, settings, nil)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBatchResponse(out))
}

func (h *Handler) amcBatchStream(c *gin.Context) {
	var req batchRequest[model.Product]
	settings, ok := h.bindCalculate(c, &req, &req.Settings)
	if !ok {
		return
	}
	if req.Products == nil {
		h.handleError(c, fmt.Errorf("%w: products are required", service.ErrMalformedBatch))
		return
	}
	h.stream(c, model.KindAMC, func(ctx context.Context, onEvent func(batch.Event)) error {
		_, err := h.schedules.RunAMCBatch(ctx, *req.Products, settings, onEvent)
		return err
	})
}

func (h *Handler) warrantyBatchStream(c *gin.Context) {
	var req batchRequest[model.WarrantyProduct]
	settings, ok := h.bindCalculate(c, &req, &req.Settings)
	if !ok {
		return
	}
	if req.Products == nil {
		h.handleError(c, fmt.Errorf("%w: products are required", service.ErrMalformedBatch))
		return
	}
	h.stream(c, model.KindWarranty, func(ctx context.Context, onEvent func(batch.Event)) error {
		_, err := h.schedules.RunWarrantyBatch(ctx, *req.Products, settings, onEvent)
		return err
	})
}

// stream relays batch events as server-sent events until the terminal one.
func (h *Handler) stream(c *gin.Context, kind model.ScheduleKind, run func(context.Context, func(batch.Event)) error) {
	ctx := c.Request.Context()
	ch := make(chan batch.Event, 16)

	go func() {
		defer close(ch)
		send := func(ev batch.Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}
		terminal := false
		err := run(ctx, func(ev batch.Event) {
			terminal = terminal || ev.Terminal()
			send(ev)
		})
		if err != nil && !terminal {
			send(batch.Event{Type: batch.EventError, ChunkIndex: -1, Err: err})
		}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	for ev := range ch {
		msg := streamMessage{Message: events.NewMessage(kind, ev, time.Now())}
		if ev.Type == batch.EventComplete {
			msg.Results = ev.Results
		}
		c.SSEvent(string(ev.Type), msg)
		c.Writer.Flush()
	}
}

func (h *Handler) importAMC(c *gin.Context) {
	file, sheet, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	products, rowErrs, err := importer.ReadAMC(file, sheet)
	if err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "rowErrors": nonNil(rowErrs)})
}

func (h *Handler) importWarranty(c *gin.Context) {
	file, sheet, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	products, rowErrs, err := importer.ReadWarranty(file, sheet)
	if err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	if products == nil {
		products = []model.WarrantyProduct{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "rowErrors": nonNil(rowErrs)})
}

func (h *Handler) openUpload(c *gin.Context) (io.ReadCloser, string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, "", false
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return nil, "", false
	}
	return file, c.PostForm("sheet"), true
}

func (h *Handler) export(kind model.ScheduleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := service.ParseFormat(c.Param("format"))
		if err != nil {
			h.handleError(c, err)
			return
		}
		var req exportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		store, _ := strconv.ParseBool(c.DefaultQuery("store", "false"))

		result, err := h.exports.Export(c.Request.Context(), service.ExportRequest{
			Kind:    kind,
			Format:  format,
			Results: req.Results,
			Scope:   req.Scope,
			Store:   store,
		})
		if err != nil {
			h.handleError(c, err)
			return
		}

		if store {
			c.JSON(http.StatusOK, gin.H{"url": result.URL, "fileName": result.FileName})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
		c.Data(http.StatusOK, result.ContentType, result.Content)
	}
}

func (h *Handler) storedBatch(c *gin.Context) {
	record, err := h.schedules.StoredBatch(c.Request.Context(), c.Param("fingerprint"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) invalidateBatch(c *gin.Context) {
	if err := h.requireEditor(c); err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.schedules.InvalidateCache(c.Request.Context(), c.Param("fingerprint")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listPayments(c *gin.Context) {
	statuses, err := h.payments.Statuses(c.Request.Context(), c.Param("scope"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

func (h *Handler) setPayment(c *gin.Context) {
	if err := h.requireEditor(c); err != nil {
		h.handleError(c, err)
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := h.payments.SetStatus(c.Request.Context(), c.Param("scope"), c.Param("quarterKey"), req.Paid, req.Date)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// requireEditor rejects callers whose token grants read-only access.
func (h *Handler) requireEditor(c *gin.Context) error {
	if claims, ok := middleware.ClaimsFrom(c); ok && claims.Role == roleViewer {
		return service.ErrPermissionDenied
	}
	return nil
}

// bindCalculate decodes the body into req and overlays its settings onto the
// configured defaults.
func (h *Handler) bindCalculate(c *gin.Context, req any, raw *json.RawMessage) (model.Settings, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return model.Settings{}, false
	}
	settings := h.schedules.DefaultSettings()
	if len(*raw) > 0 && string(*raw) != "null" {
		if err := json.Unmarshal(*raw, &settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings: " + err.Error()})
			return model.Settings{}, false
		}
	}
	return settings, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMalformedBatch),
		errors.Is(err, schedule.ErrInvalidInput),
		errors.Is(err, service.ErrStorageDisabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func nonNil(errs []importer.RowError) []importer.RowError {
	if errs == nil {
		return []importer.RowError{}
	}
	return errs
}
