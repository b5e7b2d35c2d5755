package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
)

func (s *Server) Checkout(c *gin.Context) {
	var req checkoutdomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ClientIP = c.ClientIP()

	result, err := s.checkoutSvc.Checkout(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetCheckoutAttempt(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	attempt, err := s.checkoutSvc.GetAttempt(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": attempt})
}
