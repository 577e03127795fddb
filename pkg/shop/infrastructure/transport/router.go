package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"pcstore/pkg/shop/application/service"
	"pcstore/pkg/shop/domain/model"
)

const maxBodyBytes = 1 << 20

type Services struct {
	Catalog  service.CatalogService
	Carts    service.CartService
	Orders   service.OrderService
	Invoices service.InvoiceService
	Stats    service.StatsService
}

type server struct {
	Services
	location *time.Location
}

// Router serves the REST API under /api/v1. Order date filters are read as
// calendar days in loc.
func Router(services Services, loc *time.Location) http.Handler {
	if loc == nil {
		loc = time.UTC
	}
	srv := &server{Services: services, location: loc}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/products", srv.listProducts).Methods(http.MethodGet)
	s.HandleFunc("/products", srv.createProduct).Methods(http.MethodPost)
	s.HandleFunc("/products/{ID}", srv.getProduct).Methods(http.MethodGet)
	s.HandleFunc("/products/{ID}", srv.updateProduct).Methods(http.MethodPatch)
	s.HandleFunc("/products/{ID}", srv.deleteProduct).Methods(http.MethodDelete)

	s.HandleFunc("/users/{userID}/cart", srv.getCart).Methods(http.MethodGet)
	s.HandleFunc("/users/{userID}/cart", srv.clearCart).Methods(http.MethodDelete)
	s.HandleFunc("/users/{userID}/cart/items", srv.addToCart).Methods(http.MethodPost)
	s.HandleFunc("/users/{userID}/cart/items/{itemID}", srv.setCartItemQuantity).Methods(http.MethodPatch)
	s.HandleFunc("/users/{userID}/cart/items/{itemID}", srv.removeCartItem).Methods(http.MethodDelete)

	s.HandleFunc("/orders", srv.listOrders).Methods(http.MethodGet)
	s.HandleFunc("/orders", srv.placeOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{ID}", srv.getOrder).Methods(http.MethodGet)
	s.HandleFunc("/orders/{ID}", srv.updateOrder).Methods(http.MethodPatch)
	s.HandleFunc("/orders/{ID}", srv.deleteOrder).Methods(http.MethodDelete)

	s.HandleFunc("/invoices", srv.listInvoices).Methods(http.MethodGet)
	s.HandleFunc("/invoices", srv.createInvoice).Methods(http.MethodPost)
	s.HandleFunc("/invoices/{ID}", srv.getInvoice).Methods(http.MethodGet)
	s.HandleFunc("/invoices/{ID}/document", srv.getInvoiceDocument).Methods(http.MethodGet)
	s.HandleFunc("/invoices/{ID}", srv.deleteInvoice).Methods(http.MethodDelete)

	s.HandleFunc("/admin/stats", srv.getStats).Methods(http.MethodGet)

	return logMiddleware(r)
}

type errorResponse struct {
	Error     string     `json:"error"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Remaining *int       `json:"remaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	b, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(b); err != nil {
		log.WithField("err", err).Error("write response status")
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var outOfStock *model.OutOfStockError
	switch {
	case errors.As(err, &outOfStock):
		status = http.StatusConflict
		resp.ProductID = &outOfStock.ProductID
		resp.Remaining = &outOfStock.Remaining
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrOutOfStock):
		status = http.StatusConflict
	default:
		log.WithError(err).Error("request failed")
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// decodeBody rejects unknown fields so that typos in patches never pass
// silently.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid "+name)
		return nil, false
	}
	return &id, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("handled request")
	})
}
