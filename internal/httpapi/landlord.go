package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/httputil"
	"github.com/R3E-Network/rentals/internal/landlord"
	"github.com/R3E-Network/rentals/internal/report"
	"github.com/R3E-Network/rentals/internal/stats"
)

// mutationResponse carries the changed record with the refreshed list and
// statistics, so the client redraws without a second round trip.
type mutationResponse struct {
	Item  interface{} `json:"item,omitempty"`
	Items interface{} `json:"items,omitempty"`
	Stats stats.Stats `json:"stats"`
}

// respondMutation re-reads the list and the statistics after a successful
// write. A failed re-read is logged; the write itself already succeeded.
func (s *Server) respondMutation(w http.ResponseWriter, r *http.Request, status int, item interface{}, list func(context.Context, string) (interface{}, error)) {
	ctx := r.Context()
	owner := landlordID(ctx)

	resp := mutationResponse{Item: item}
	items, err := list(ctx, owner)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("refresh after mutation failed")
	} else {
		resp.Items = items
	}
	resp.Stats = s.stats.Compute(ctx, owner)
	httputil.WriteJSON(w, status, resp)
}

func (s *Server) listProperties(ctx context.Context, owner string) (interface{}, error) {
	return s.managers.Properties.List(ctx, owner)
}

func (s *Server) listLeases(ctx context.Context, owner string) (interface{}, error) {
	return s.managers.Leases.List(ctx, owner)
}

func (s *Server) listPayments(ctx context.Context, owner string) (interface{}, error) {
	return s.managers.Payments.List(ctx, owner)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, list func(context.Context, string) (interface{}, error)) {
	items, err := list(r.Context(), landlordID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	s.handleList(w, r, s.listProperties)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, err := s.managers.Properties.Create(r.Context(), landlordID(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusCreated, p, s.listProperties)
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, err := s.managers.Properties.Update(r.Context(), landlordID(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusOK, p, s.listProperties)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	err := s.managers.Properties.Delete(r.Context(), landlordID(r.Context()), mux.Vars(r)["id"], landlord.Preconfirmed(confirmed(r)))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusOK, nil, s.listProperties)
}

func (s *Server) handleListLeases(w http.ResponseWriter, r *http.Request) {
	s.handleList(w, r, s.listLeases)
}

func (s *Server) handleCreateLease(w http.ResponseWriter, r *http.Request) {
	var in domain.LeaseInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	l, err := s.managers.Leases.Create(r.Context(), landlordID(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusCreated, l, s.listLeases)
}

func (s *Server) handleDeleteLease(w http.ResponseWriter, r *http.Request) {
	err := s.managers.Leases.Delete(r.Context(), landlordID(r.Context()), mux.Vars(r)["id"], landlord.Preconfirmed(confirmed(r)))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusOK, nil, s.listLeases)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	s.handleList(w, r, s.listPayments)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var in domain.PaymentInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, err := s.managers.Payments.Create(r.Context(), landlordID(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusCreated, p, s.listPayments)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	err := s.managers.Payments.Delete(r.Context(), landlordID(r.Context()), mux.Vars(r)["id"], landlord.Preconfirmed(confirmed(r)))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusOK, nil, s.listPayments)
}

func (s *Server) handleExportPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.managers.Payments.List(r.Context(), landlordID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	name := fmt.Sprintf("rent-ledger-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := report.WritePaymentLedger(w, payments); err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("write payment ledger")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.stats.Compute(r.Context(), landlordID(r.Context())))
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.inbox.List(r.Context(), landlordID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msgs)
}
