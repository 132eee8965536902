package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-checkout-orders/internal/validation"
)

func (h *handler) registerProductRoutes(r *gin.Engine) {
	r.POST("/products", func(c *gin.Context) {
		var req validation.CreateProductRequest
		if err := validation.BindAndValidate(c, &req, h.validator); err != nil {
			return
		}

		product, err := h.cfg.Products.Create(c.Request.Context(), req.Name, req.Price, req.Quantity)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	})
}
