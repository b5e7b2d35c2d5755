package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListBundles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.catalogSvc.List(c.Request.Context())})
}
