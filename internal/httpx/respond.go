package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

type pageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type listPayload struct {
	Items      any      `json:"items"`
	Pagination pageMeta `json:"pagination"`
}

func paginated(items any, total, page, limit int) listPayload {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return listPayload{
		Items:      items,
		Pagination: pageMeta{Total: total, Page: page, Limit: limit, TotalPages: pages},
	}
}

// parsePage reads page/limit query params, falling back to defLimit.
func parsePage(r *http.Request, defLimit int) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defLimit
	}
	return page, limit
}
