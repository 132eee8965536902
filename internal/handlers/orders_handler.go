package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-checkout-orders/internal/checkout"
	"github.com/imrishuroy/go-checkout-orders/internal/idempotency"
	"github.com/imrishuroy/go-checkout-orders/internal/logging"
	"github.com/imrishuroy/go-checkout-orders/internal/validation"
)

const headerIdempotencyKey = "Idempotency-Key"

// maxOrderBodyBytes caps POST /orders bodies; the raw body is hashed for
// idempotency before it is bound.
const maxOrderBodyBytes = 1 << 20

func (h *handler) registerOrderRoutes(r *gin.Engine) {
	r.POST("/orders", h.createOrder)
	r.GET("/orders/:id", h.showOrder)
}

func (h *handler) createOrder(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.FromContextOr(ctx, h.log)

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxOrderBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request_body_too_large", "limit": tooLarge.Limit})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validator); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	idempKey := c.GetHeader(headerIdempotencyKey)
	if idempKey != "" && h.cfg.Idempotency != nil {
		if done := h.claimIdempotencyKey(c, idempKey, idempotency.Fingerprint(raw)); done {
			return
		}
	} else {
		idempKey = ""
	}

	in := checkout.CreateOrderRequest{CustomerID: req.CustomerID}
	for _, p := range req.Products {
		in.Products = append(in.Products, checkout.ProductRequest{ID: p.ID, Quantity: p.Quantity})
	}

	order, err := h.cfg.CreateOrder.Execute(ctx, in)
	if err != nil {
		var appErr *checkout.AppError
		if errors.As(err, &appErr) {
			h.metrics.OrderRejections.WithLabelValues(string(appErr.Kind)).Inc()
		}
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.finishFailed(ctx, idempKey, err)
		} else {
			h.finishDone(ctx, idempKey, "", status, body)
		}
		h.writeError(c, err)
		return
	}
	h.metrics.OrdersCreated.Inc()

	if h.cfg.Events != nil {
		if _, err := h.cfg.Events.PublishCreated(ctx, order, requestIDOf(c)); err != nil {
			h.metrics.PublishFailures.Inc()
			logger.Warn("order_event_publish_failed",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
		}
	}

	h.finishDone(ctx, idempKey, order.OrderID, http.StatusCreated, order)
	c.Header("Location", fmt.Sprintf("/orders/%s", order.OrderID))
	c.JSON(http.StatusCreated, order)
}

// claimIdempotencyKey reserves key for this request. It returns true when a
// response was already written because the key belongs to an earlier request.
func (h *handler) claimIdempotencyKey(c *gin.Context, key, requestHash string) bool {
	ctx := c.Request.Context()

	created, err := h.cfg.Idempotency.CreateIfNotExists(ctx, key, requestHash)
	if err != nil {
		h.writeError(c, fmt.Errorf("claim idempotency key: %w", err))
		return true
	}
	if created {
		return false
	}

	rec, err := h.cfg.Idempotency.Get(ctx, key)
	if err != nil {
		h.writeError(c, fmt.Errorf("read idempotency key: %w", err))
		return true
	}
	if rec == nil {
		// Expired between the put and the read.
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency_key_expired"})
		return true
	}
	if rec.RequestHash != requestHash {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency_key_reused"})
		return true
	}

	switch rec.Status {
	case idempotency.StatusDone:
		c.Header("Idempotent-Replayed", "true")
		if rec.OrderID != "" {
			c.Header("Location", fmt.Sprintf("/orders/%s", rec.OrderID))
		}
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
	case idempotency.StatusFailed:
		c.JSON(http.StatusConflict, gin.H{"error": "previous_attempt_failed"})
	default:
		h.writeError(c, fmt.Errorf("unknown idempotency status %q", rec.Status))
	}
	return true
}

func (h *handler) finishDone(ctx context.Context, key, orderID string, status int, body any) {
	if key == "" {
		return
	}
	payload, err := json.Marshal(body)
	if err == nil {
		err = h.cfg.Idempotency.MarkDone(ctx, key, orderID, string(payload), status)
	}
	if err != nil {
		logging.FromContextOr(ctx, h.log).Warn("idempotency_mark_done_failed",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (h *handler) finishFailed(ctx context.Context, key string, cause error) {
	if key == "" {
		return
	}
	if err := h.cfg.Idempotency.MarkFailed(ctx, key, cause.Error()); err != nil {
		logging.FromContextOr(ctx, h.log).Warn("idempotency_mark_failed_failed",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (h *handler) showOrder(c *gin.Context) {
	order, err := h.cfg.ShowOrder.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
