// Package handlers implements the admin HTTP endpoints.
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func parseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}
