package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// PageParams PageSize 0 means no paging
type PageParams struct {
	Page     int
	PageSize int
}

func (p PageParams) Enabled() bool {
	return p.PageSize > 0
}

func (p PageParams) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

func ParsePageParams(c *gin.Context, defaultPage, defaultPageSize, maxPageSize int) PageParams {
	page := defaultPage
	pageSize := defaultPageSize
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(c.Query("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > maxPageSize {
				n = maxPageSize
			}
			pageSize = n
		}
	}
	return PageParams{Page: page, PageSize: pageSize}
}
