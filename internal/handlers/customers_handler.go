package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-checkout-orders/internal/validation"
)

func (h *handler) registerCustomerRoutes(r *gin.Engine) {
	r.POST("/customers", func(c *gin.Context) {
		var req validation.CreateCustomerRequest
		if err := validation.BindAndValidate(c, &req, h.validator); err != nil {
			return
		}

		customer, err := h.cfg.Customers.Create(c.Request.Context(), req.Name, req.Email)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	})
}
