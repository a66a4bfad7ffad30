package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseIDParam 解析路径中的正整数 ID，失败时直接写 400
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// QueryLimit 读取 limit 参数并限制在 [1, max]
func QueryLimit(c *gin.Context, def, max int) int {
	limit := def
	if s := c.Query("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil {
			limit = l
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	return limit
}
