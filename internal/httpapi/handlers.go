package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/R3E-Network/rentals/internal/catalog"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/httputil"
	"github.com/R3E-Network/rentals/internal/middleware"
	"github.com/R3E-Network/rentals/internal/session"
	"github.com/R3E-Network/rentals/internal/stats"
)

type sessionResponse struct {
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Role   domain.Role  `json:"role"`
	View   session.View `json:"view"`
}

// landlordDashboard is everything the landlord view renders.
type landlordDashboard struct {
	View       session.View       `json:"view"`
	Stats      stats.Stats        `json:"stats"`
	Properties []domain.Property  `json:"properties"`
	Leases     []domain.LeaseView `json:"leases"`
	Payments   []domain.Payment   `json:"payments"`
}

// tenantDashboard is the first catalog page plus the tenant's own leases.
type tenantDashboard struct {
	View    session.View   `json:"view"`
	Catalog catalog.Page   `json:"catalog"`
	Leases  []domain.Lease `json:"leases"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": s.opts.ServiceName})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	role := middleware.GetUserRole(r.Context())
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   role,
		View:   session.Gate(role),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	view := session.Gate(middleware.GetUserRole(ctx))

	switch view {
	case session.ViewLandlord:
		d := landlordDashboard{View: view}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			d.Stats = s.stats.Compute(gctx, userID)
			return nil
		})
		g.Go(func() (err error) {
			d.Properties, err = s.managers.Properties.List(gctx, userID)
			return err
		})
		g.Go(func() (err error) {
			d.Leases, err = s.managers.Leases.List(gctx, userID)
			return err
		})
		g.Go(func() (err error) {
			d.Payments, err = s.managers.Payments.List(gctx, userID)
			return err
		})
		if err := g.Wait(); err != nil {
			s.fail(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, d)

	case session.ViewTenant:
		d := tenantDashboard{View: view}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			d.Catalog, err = s.catalog.Page(gctx, 0)
			return err
		})
		g.Go(func() (err error) {
			d.Leases, err = s.managers.Leases.ListForTenant(gctx, userID)
			return err
		})
		if err := g.Wait(); err != nil {
			s.fail(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, d)

	default:
		httputil.WriteJSON(w, http.StatusOK, map[string]session.View{"view": view})
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	index := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, apperrors.Validation(apperrors.FieldError{Field: "page", Message: "must be an integer"}))
			return
		}
		index = n
	}

	page, err := s.catalog.Page(r.Context(), index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) handleTenantLeases(w http.ResponseWriter, r *http.Request) {
	leases, err := s.managers.Leases.ListForTenant(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, leases)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var draft domain.MessageDraft
	if err := httputil.DecodeJSON(w, r, &draft); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	msg, err := s.composer.Send(r.Context(), middleware.GetUserID(r.Context()), draft)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// fail writes err and logs it when it is a server-side failure.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if se := apperrors.GetServiceError(err); se == nil || se.HTTPStatus >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	httputil.WriteError(w, err, s.opts.SignInURL)
}

// confirmed reports whether the client confirmed a destructive request with
// ?confirm=true or an X-Confirm: true header.
func confirmed(r *http.Request) bool {
	raw := r.URL.Query().Get("confirm")
	if raw == "" {
		raw = r.Header.Get("X-Confirm")
	}
	ok, _ := strconv.ParseBool(raw)
	return ok
}

func landlordID(ctx context.Context) string {
	return middleware.GetUserID(ctx)
}
