package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/R3E-Network/rentals/internal/catalog"
	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/session"
	"github.com/R3E-Network/rentals/internal/stats"
	"github.com/R3E-Network/rentals/supabase/client"
)

// watchedTables maps realtime tables to the entity they carry.
var watchedTables = map[string]events.Entity{
	"properties":    events.EntityProperty,
	"leases":        events.EntityLease,
	"rent_payments": events.EntityPayment,
}

type landlordView struct {
	View       session.View       `json:"view"`
	Stats      stats.Stats        `json:"stats"`
	Properties []domain.Property  `json:"properties"`
	Leases     []domain.LeaseView `json:"leases"`
	Payments   []domain.Payment   `json:"payments"`
}

type tenantView struct {
	View    session.View   `json:"view"`
	Catalog catalog.Page   `json:"catalog"`
	Leases  []domain.Lease `json:"leases"`
}

func (a *app) dashboardCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard for your role",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}

			watcher := session.NewWatcher(ctx, a.mgr, session.NewRoleResolver(a.repo), a.logger)
			defer watcher.Close()

			switch watcher.View() {
			case session.ViewLandlord:
				if err := a.showLandlord(ctx, userID); err != nil {
					return err
				}
				if watch {
					return a.watchLandlord(ctx, userID, watcher)
				}
				return nil
			case session.ViewTenant:
				return a.showTenant(ctx, userID)
			default:
				return a.emit(map[string]session.View{"view": session.ViewNone}, func() {
					fmt.Fprintln(a.out, styles.Warning.Render("Your account has no role yet. Ask support to assign landlord or tenant."))
				})
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep statistics current as records change (landlords)")
	return cmd
}

func (a *app) showLandlord(ctx context.Context, userID string) error {
	v := landlordView{View: session.ViewLandlord}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v.Stats = stats.NewAggregator(a.repo, a.logger, nil).Compute(gctx, userID)
		return nil
	})
	g.Go(func() (err error) {
		v.Properties, err = a.managers.Properties.List(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		v.Leases, err = a.managers.Leases.List(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		v.Payments, err = a.managers.Payments.List(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return a.emit(v, func() {
		a.title("Landlord dashboard")
		a.renderStats(v.Stats)
		a.title("Properties")
		a.renderProperties(v.Properties)
		a.title("Leases")
		a.renderLeaseViews(v.Leases)
		a.title("Payments")
		a.renderPayments(v.Payments)
	})
}

func (a *app) showTenant(ctx context.Context, userID string) error {
	v := tenantView{View: session.ViewTenant}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		v.Catalog, err = catalog.NewReader(a.repo).Page(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		v.Leases, err = a.managers.Leases.ListForTenant(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return a.emit(v, func() {
		a.title("Your leases")
		a.renderLeases(v.Leases)
		a.renderCatalog(v.Catalog)
	})
}

// watchLandlord follows realtime changes on the landlord's tables and
// re-renders the statistics after each burst of changes until interrupted.
func (a *app) watchLandlord(ctx context.Context, userID string, watcher *session.Watcher) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	board := stats.NewBoard(stats.NewAggregator(a.repo, a.logger, nil), userID)
	board.Refresh(ctx)
	unfollow := board.Follow(a.bus)
	defer unfollow()

	// Leaving the landlord role, or signing out elsewhere, ends the watch.
	watcher.OnResolve(func(identity string, role domain.Role) {
		if identity != userID || role != domain.RoleLandlord {
			stop()
		}
	})

	token, err := a.mgr.AccessToken(ctx)
	if err != nil {
		return err
	}
	rt := client.NewRealtimeClient(a.cfg.Supabase.URL, a.cfg.Supabase.AnonKey)
	rt.SetAccessToken(token)
	unsub := a.mgr.OnChange(func(c session.Change) {
		if c.Session != nil {
			rt.SetAccessToken(c.Session.AccessToken)
		}
	})
	defer unsub()

	if err := rt.Connect(ctx); err != nil {
		return fmt.Errorf("connect realtime: %w", err)
	}
	defer rt.Disconnect()

	changes := make(chan events.Mutation, 1)
	for table := range watchedTables {
		filter := ""
		if table != "rent_payments" {
			filter = "landlord_id=eq." + userID
		}
		ch, err := rt.SubscribeToPostgresChanges(ctx, table, client.PostgresChangesConfig{
			Event: "*", Schema: "public", Table: table, Filter: filter,
		}, func(c client.Change) {
			m, ok := mutationFromChange(userID, c)
			if !ok {
				return
			}
			select {
			case changes <- m:
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", table, err)
		}
		defer ch.Unsubscribe()
	}

	fmt.Fprintln(a.out, styles.Muted.Render("Watching for changes. Press Ctrl+C to stop."))
	tokenTick := time.NewTicker(time.Minute)
	defer tokenTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tokenTick.C:
			// Refreshes the session ahead of expiry; subscribers pick up the new token.
			if _, err := a.mgr.AccessToken(ctx); err != nil {
				return err
			}
		case m := <-changes:
			tctx, _, err := a.authed(ctx)
			if err != nil {
				return err
			}
			before := board.Snapshot()
			if err := a.bus.Publish(tctx, m); err != nil {
				return err
			}
			if err := a.showStats(before, board.Snapshot()); err != nil {
				return err
			}
		}
	}
}

// showStats prints after when a refresh changed the statistics.
func (a *app) showStats(before, after stats.Stats) error {
	if after == before {
		return nil
	}
	return a.emit(after, func() {
		fmt.Fprintln(a.out, styles.Muted.Render("updated "+time.Now().Format("15:04:05")))
		a.renderStats(after)
	})
}

// mutationFromChange converts a realtime row change into a mutation of the
// landlord's records.
func mutationFromChange(landlordID string, c client.Change) (events.Mutation, bool) {
	entity, ok := watchedTables[c.Table]
	if !ok {
		return events.Mutation{}, false
	}
	var action events.Action
	switch c.Type {
	case "INSERT":
		action = events.ActionCreated
	case "UPDATE":
		action = events.ActionUpdated
	case "DELETE":
		action = events.ActionDeleted
	default:
		return events.Mutation{}, false
	}

	row := c.Record
	if action == events.ActionDeleted {
		row = c.OldRecord
	}
	id, _ := row["id"].(string)
	return events.Mutation{Entity: entity, Action: action, LandlordID: landlordID, ID: id}, true
}
