package httpx

import (
	"net/http/httptest"
	"testing"
)

func TestPaginated(t *testing.T) {
	cases := []struct {
		total, limit, wantPages int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 10, 10},
		{5, 0, 0},
	}
	for _, c := range cases {
		got := paginated(nil, c.total, 1, c.limit)
		if got.Pagination.TotalPages != c.wantPages {
			t.Errorf("paginated(total=%d, limit=%d).TotalPages = %d, want %d",
				c.total, c.limit, got.Pagination.TotalPages, c.wantPages)
		}
	}
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		url                 string
		wantPage, wantLimit int
	}{
		{"/api/orders", 1, 20},
		{"/api/orders?page=3&limit=50", 3, 50},
		{"/api/orders?page=0&limit=-5", 1, 20},
		{"/api/orders?page=abc&limit=xyz", 1, 20},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", c.url, nil)
		page, limit := parsePage(r, 20)
		if page != c.wantPage || limit != c.wantLimit {
			t.Errorf("parsePage(%q) = (%d, %d), want (%d, %d)",
				c.url, page, limit, c.wantPage, c.wantLimit)
		}
	}
}
