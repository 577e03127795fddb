package model

import "strings"

var statusByPaymentMethod = map[string]OrderStatus{
	"cash":             StatusPending,
	"cash_on_delivery": StatusPending,
	"bank_transfer":    StatusPending,
	"efectivo":         StatusPending,
	"transferencia":    StatusPending,

	"credit_card":     StatusPaid,
	"debit_card":      StatusPaid,
	"tarjeta":         StatusPaid,
	"tarjeta_credito": StatusPaid,
	"tarjeta_debito":  StatusPaid,
}

// StatusForPaymentMethod derives the initial order status. Card payments are
// settled at checkout, everything else waits for payment.
func StatusForPaymentMethod(paymentMethod string) OrderStatus {
	if status, ok := statusByPaymentMethod[strings.ToLower(strings.TrimSpace(paymentMethod))]; ok {
		return status
	}
	return StatusPending
}
