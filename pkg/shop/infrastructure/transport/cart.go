package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/shop/domain/model"
)

type cartItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     money     `json:"price"`
	Subtotal  money     `json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cartResponse struct {
	ID     uuid.UUID          `json:"id"`
	UserID uuid.UUID          `json:"user_id"`
	Items  []cartItemResponse `json:"items"`
	Total  money              `json:"total"`
}

func newCartItemResponse(item *model.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Price:     money(item.Price),
		Subtotal:  money(model.LineTotal(item.Price, item.Quantity)),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func newCartResponse(cart *model.Cart) cartResponse {
	resp := cartResponse{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]cartItemResponse, 0, len(cart.Items)),
		Total:  money(cart.Total()),
	}
	for i := range cart.Items {
		resp.Items = append(resp.Items, newCartItemResponse(&cart.Items[i]))
	}
	return resp
}

type addToCartRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type cartItemQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *server) getCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	cart, err := s.Carts.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (s *server) addToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req addToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := s.Carts.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartItemResponse(item))
}

func (s *server) setCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	var req cartItemQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := s.Carts.SetItemQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartItemResponse(item))
}

func (s *server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	if err := s.Carts.RemoveItem(r.Context(), userID, itemID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.Carts.Clear(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
