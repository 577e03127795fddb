package transport

import "net/http"

type statsResponse struct {
	TotalProducts int   `json:"total_products"`
	TotalOrders   int   `json:"total_orders"`
	TotalRevenue  money `json:"total_revenue"`
}

func (s *server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalProducts: stats.TotalProducts,
		TotalOrders:   stats.TotalOrders,
		TotalRevenue:  money(stats.TotalRevenue),
	})
}
