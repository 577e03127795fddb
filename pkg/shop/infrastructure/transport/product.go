package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/shop/domain/model"
)

type productResponse struct {
	ID             uuid.UUID  `json:"id"`
	CategoryID     *uuid.UUID `json:"category_id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Brand          string     `json:"brand"`
	Model          string     `json:"model"`
	Price          money      `json:"price"`
	PriceWithTax   money      `json:"price_with_tax"`
	Stock          *int       `json:"stock"`
	MinStock       int        `json:"min_stock"`
	LowStock       bool       `json:"low_stock"`
	WarrantyMonths int        `json:"warranty_months"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		CategoryID:     p.CategoryID,
		Code:           p.Code,
		Name:           p.Name,
		Description:    p.Description,
		Brand:          p.Brand,
		Model:          p.Model,
		Price:          money(p.Price),
		PriceWithTax:   money(model.PriceWithTax(p.Price)),
		Stock:          p.Stock,
		MinStock:       p.MinStock,
		LowStock:       p.Stock != nil && *p.Stock <= p.MinStock,
		WarrantyMonths: p.WarrantyMonths,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type createProductRequest struct {
	CategoryID     *uuid.UUID `json:"category_id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Brand          string     `json:"brand"`
	Model          string     `json:"model"`
	Price          money      `json:"price"`
	Stock          *int       `json:"stock"`
	MinStock       *int       `json:"min_stock"`
	WarrantyMonths *int       `json:"warranty_months"`
	IsActive       *bool      `json:"is_active"`
}

// updateProductRequest keeps stock raw: an explicit null stops stock
// tracking, an absent field leaves it alone.
type updateProductRequest struct {
	CategoryID     *uuid.UUID      `json:"category_id"`
	Code           *string         `json:"code"`
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	Brand          *string         `json:"brand"`
	Model          *string         `json:"model"`
	Price          *money          `json:"price"`
	Stock          json.RawMessage `json:"stock"`
	MinStock       *int            `json:"min_stock"`
	WarrantyMonths *int            `json:"warranty_months"`
	IsActive       *bool           `json:"is_active"`
}

func (req updateProductRequest) patch() (model.ProductPatch, error) {
	patch := model.ProductPatch{
		CategoryID:     req.CategoryID,
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		Brand:          req.Brand,
		Model:          req.Model,
		MinStock:       req.MinStock,
		WarrantyMonths: req.WarrantyMonths,
		IsActive:       req.IsActive,
	}
	if req.Price != nil {
		price := req.Price.Decimal()
		patch.Price = &price
	}
	switch {
	case req.Stock == nil:
	case bytes.Equal(bytes.TrimSpace(req.Stock), []byte("null")):
		patch.UntrackStock = true
	default:
		var stock int
		if err := json.Unmarshal(req.Stock, &stock); err != nil {
			return model.ProductPatch{}, model.NewValidationError("stock must be an integer or null")
		}
		patch.Stock = &stock
	}
	return patch, nil
}

func (s *server) listProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryID(w, r, "category_id")
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := model.ProductFilter{
		CategoryID: categoryID,
		OnlyActive: query.Get("active") == "true",
		Search:     query.Get("search"),
	}

	products, err := s.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, newProductResponse(&products[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := s.Catalog.CreateProduct(r.Context(), model.NewProductParams{
		CategoryID:     req.CategoryID,
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		Brand:          req.Brand,
		Model:          req.Model,
		Price:          req.Price.Decimal(),
		Stock:          req.Stock,
		MinStock:       req.MinStock,
		WarrantyMonths: req.WarrantyMonths,
		IsActive:       req.IsActive,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductResponse(product))
}

func (s *server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	product, err := s.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (s *server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	var req updateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := s.Catalog.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (s *server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	if err := s.Catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
