package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pcstore/pkg/shop/domain/model"
)

type invoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerName  string    `json:"customer_name"`
	CustomerDNI   string    `json:"customer_dni"`
	Subtotal      money     `json:"subtotal"`
	Tax           money     `json:"tax"`
	Total         money     `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

func newInvoiceResponse(i *model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            i.ID,
		OrderID:       i.OrderID,
		InvoiceNumber: i.InvoiceNumber,
		CustomerName:  i.CustomerName,
		CustomerDNI:   i.CustomerDNI,
		Subtotal:      money(i.Subtotal),
		Tax:           money(i.Tax),
		Total:         money(i.Total),
		CreatedAt:     i.CreatedAt,
	}
}

type createInvoiceRequest struct {
	OrderID      uuid.UUID `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	CustomerDNI  string    `json:"customer_dni"`
}

func (s *server) listInvoices(w http.ResponseWriter, r *http.Request) {
	orderID, ok := queryID(w, r, "order_id")
	if !ok {
		return
	}
	invoices, err := s.Invoices.ListInvoices(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		resp = append(resp, newInvoiceResponse(&invoices[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	invoice, err := s.Invoices.CreateInvoice(r.Context(), req.OrderID, req.CustomerName, req.CustomerDNI)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newInvoiceResponse(invoice))
}

func (s *server) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	invoice, err := s.Invoices.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceResponse(invoice))
}

func (s *server) getInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	invoice, err := s.Invoices.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+invoice.InvoiceNumber+`.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(invoice.Document); err != nil {
		log.WithField("err", err).Error("write invoice document")
	}
}

func (s *server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ID")
	if !ok {
		return
	}
	if err := s.Invoices.DeleteInvoice(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
