package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/catalog"
)

type CatalogHandler struct {
	Repo *catalog.Repo
	Log  *zap.Logger
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Season      string `json:"season"`
	ImageURL    string `json:"image_url"`
	IsActive    *bool  `json:"is_active"`
}

type ProductRequest struct {
	CategoryID     string `json:"category_id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Description    string `json:"description"`
	PriceCents     int64  `json:"price_cents"`
	DiscountCents  *int64 `json:"discount_cents"`
	SKU            string `json:"sku"`
	IsCustomizable bool   `json:"is_customizable"`
	IsActive       *bool  `json:"is_active"`
}

type ImageRequest struct {
	ImageURL  string `json:"image_url"`
	AltText   string `json:"alt_text"`
	SortOrder int    `json:"sort_order"`
	IsMain    bool   `json:"is_main"`
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Get("/{slug}", h.getCategory)
		r.Put("/{id}", h.updateCategory)
		r.Delete("/{id}", h.deleteCategory)
	})
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{slug}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
		r.Post("/{id}/images", h.addImage)
	})
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Repo.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(cats, len(cats), 1, len(cats)))
}

func (h *CatalogHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.Repo.GetCategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		h.serverError(w, "get category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	if !catalog.ValidSeason(req.Season) {
		writeError(w, http.StatusBadRequest, "unknown season")
		return
	}
	c := catalog.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Season:      req.Season,
		ImageURL:    req.ImageURL,
	}
	if err := h.Repo.CreateCategory(r.Context(), &c); err != nil {
		h.serverError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	if !catalog.ValidSeason(req.Season) {
		writeError(w, http.StatusBadRequest, "unknown season")
		return
	}
	c := catalog.Category{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Season:      req.Season,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	err := h.Repo.UpdateCategory(r.Context(), &c)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		h.serverError(w, "update category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.Repo.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		h.serverError(w, "delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "category deactivated"})
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := parsePage(r, 12)

	f := catalog.ProductFilter{
		CategoryID: q.Get("categoryId"),
		Season:     q.Get("season"),
		Search:     q.Get("search"),
		Page:       page,
		Limit:      limit,
	}
	if v := q.Get("minPrice"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid minPrice")
			return
		}
		f.MinPriceCents = &n
	}
	if v := q.Get("maxPrice"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxPrice")
			return
		}
		f.MaxPriceCents = &n
	}
	if !catalog.ValidSeason(f.Season) {
		writeError(w, http.StatusBadRequest, "unknown season")
		return
	}

	products, total, err := h.Repo.ListProducts(r.Context(), f)
	if err != nil {
		h.serverError(w, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(products, total, page, limit))
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.serverError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p := catalog.Product{
		CategoryID:     req.CategoryID,
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		DiscountCents:  req.DiscountCents,
		SKU:            req.SKU,
		IsCustomizable: req.IsCustomizable,
	}
	if err := h.Repo.CreateProduct(r.Context(), &p); err != nil {
		h.serverError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p := catalog.Product{
		ID:             chi.URLParam(r, "id"),
		CategoryID:     req.CategoryID,
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		DiscountCents:  req.DiscountCents,
		SKU:            req.SKU,
		IsCustomizable: req.IsCustomizable,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	err := h.Repo.UpdateProduct(r.Context(), &p)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.serverError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.Repo.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.serverError(w, "delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deactivated"})
}

func (h *CatalogHandler) addImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "image_url is required")
		return
	}
	img := catalog.Image{
		ProductID: chi.URLParam(r, "id"),
		ImageURL:  req.ImageURL,
		AltText:   req.AltText,
		SortOrder: req.SortOrder,
		IsMain:    req.IsMain,
	}
	if err := h.Repo.AddImage(r.Context(), &img); err != nil {
		h.serverError(w, "add image", err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (h *CatalogHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductRequest, bool) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	switch {
	case req.CategoryID == "":
		writeError(w, http.StatusBadRequest, "category_id is required")
	case req.Name == "" || req.Slug == "":
		writeError(w, http.StatusBadRequest, "name and slug are required")
	case req.PriceCents <= 0:
		writeError(w, http.StatusBadRequest, "price_cents must be positive")
	default:
		return req, true
	}
	return req, false
}

func (h *CatalogHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.Log.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
