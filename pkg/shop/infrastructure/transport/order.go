package transport

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/shop/domain/model"
	domainservice "pcstore/pkg/shop/domain/service"
)

const dateLayout = "2006-01-02"

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductCode string    `json:"product_code"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   money     `json:"unit_price"`
	TotalPrice  money     `json:"total_price"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	TotalAmount     money               `json:"total_amount"`
	Status          model.OrderStatus   `json:"status"`
	PaymentMethod   string              `json:"payment_method"`
	ShippingAddress json.RawMessage     `json:"shipping_address"`
	TrackingNumber  string              `json:"tracking_number"`
	Notes           string              `json:"notes"`
	Items           []orderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func newOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		TotalAmount:     money(o.TotalAmount),
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductCode: item.ProductCode,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   money(item.UnitPrice),
			TotalPrice:  money(item.TotalPrice),
		})
	}
	return resp
}

type lineItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     money     `json:"price"`
}

type placeOrderRequest struct {
	UserID          uuid.UUID         `json:"user_id"`
	PaymentMethod   string            `json:"payment_method"`
	ShippingAddress json.RawMessage   `json:"shipping_address"`
	Notes           string            `json:"notes"`
	Items           []lineItemRequest `json:"items"`
	TrackingNumber  string            `json:"tracking_number"`
	TotalAmount     *money            `json:"total_amount"`
	Status          model.OrderStatus `json:"status"`
}

func (req placeOrderRequest) domain() domainservice.PlaceOrderRequest {
	out := domainservice.PlaceOrderRequest{
		UserID:          req.UserID,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		TrackingNumber:  req.TrackingNumber,
		Status:          req.Status,
		Items:           make([]domainservice.LineItem, 0, len(req.Items)),
	}
	if req.TotalAmount != nil {
		total := req.TotalAmount.Decimal()
		out.TotalAmount = &total
	}
	for _, item := range req.Items {
		out.Items = append(out.Items, domainservice.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.Decimal(),
		})
	}
	return out
}

// updateOrderRequest lists the only fields an order update may touch.
type updateOrderRequest struct {
	TotalAmount     *money             `json:"total_amount"`
	Status          *model.OrderStatus `json:"status"`
	PaymentMethod   *string            `json:"payment_method"`
	TrackingNumber  *string            `json:"tracking_number"`
	ShippingAddress json.RawMessage    `json:"shipping_address"`
	Notes           *string            `json:"notes"`
}

func (req updateOrderRequest) patch() model.OrderPatch {
	patch := model.OrderPatch{
		Status:          req.Status,
		PaymentMethod:   req.PaymentMethod,
		TrackingNumber:  req.TrackingNumber,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	if req.TotalAmount != nil {
		total := req.TotalAmount.Decimal()
		patch.TotalAmount = &total
	}
	return patch
}

func (s *server) orderFilter(r *http.Request) (model.OrderFilter, error) {
	query := r.URL.Query()
	filter := model.OrderFilter{
		Search:        strings.TrimSpace(query.Get("search")),
		Status:        model.OrderStatus(query.Get("status")),
		PaymentMethod: query.Get("payment_method"),
	}
	if raw := query.Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return model.OrderFilter{}, model.NewValidationError("invalid user_id")
		}
		filter.UserID = &userID
	}
	if raw := query.Get("date_from"); raw != "" {
		from, err := time.ParseInLocation(dateLayout, raw, s.location)
		if err != nil {
			return model.OrderFilter{}, model.NewValidationError("date_from must be YYYY-MM-DD")
		}
		filter.CreatedFrom = &from
	}
	if raw := query.Get("date_to"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, s.location)
		if err != nil {
			return model.OrderFilter{}, model.NewValidationError("date_to must be YYYY-MM-DD")
		}
		to := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.CreatedTo = &to
	}
	return filter, nil
}

func (s *server) listOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := s.orderFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	orders, err := s.Orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := s.Orders.PlaceOrder(r.Context(), req.domain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (s *server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	order, err := s.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (s *server) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := s.Orders.UpdateOrder(r.Context(), id, req.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (s *server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	if err := s.Orders.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
