package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params is a clamped page window.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows before the first row of the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads ?page= and ?limit=; missing or malformed values fall back to
// the defaults.
func Parse(c *gin.Context) Params {
	return Normalize(queryInt(c, "page"), queryInt(c, "limit"))
}

func Normalize(page, limit int) Params {
	p := Params{Page: max(page, DefaultPage), Limit: limit}
	switch {
	case limit < MinLimit:
		p.Limit = DefaultLimit
	case limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
