package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: 20}},
		{"?page=3&limit=50", Params{Page: 3, Limit: 50}},
		{"?page=0&limit=0", Params{Page: 1, Limit: 20}},
		{"?page=abc&limit=-4", Params{Page: 1, Limit: 20}},
		{"?limit=1000", Params{Page: 1, Limit: 100}},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/items"+tt.query, nil)
		if got := Parse(c); got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestNewPageTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
	}
	for _, tt := range tests {
		p := NewPage([]int{}, tt.total, Params{Page: 1, Limit: tt.limit})
		if p.TotalPages != tt.want {
			t.Errorf("total=%d limit=%d: TotalPages = %d, want %d", tt.total, tt.limit, p.TotalPages, tt.want)
		}
	}
}
