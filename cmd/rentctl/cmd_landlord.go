package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/report"
	"github.com/R3E-Network/rentals/internal/stats"
)

// optFloat registers a float flag whose absence is distinguishable from zero.
type optFloat struct {
	v float64
}

func (o *optFloat) ptr(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v := o.v
	return &v
}

func dateFlag(name, raw string) (domain.Date, error) {
	if raw == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, fmt.Errorf("--%s: expected YYYY-MM-DD", name)
	}
	return d, nil
}

func (a *app) deleteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&a.assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

func (a *app) propertiesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "properties", Aliases: []string{"property"}, Short: "Manage your properties"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your properties, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			props, err := a.managers.Properties.List(ctx, userID)
			if err != nil {
				return err
			}
			return a.emit(props, func() { a.renderProperties(props) })
		},
	})

	var in domain.PropertyInput
	var rent, deposit optFloat
	var status string
	propertyFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&in.Name, "name", "", "Property name")
		c.Flags().StringVar(&in.Address, "address", "", "Street address")
		c.Flags().StringVar(&in.UnitNumber, "unit", "", "Unit number")
		c.Flags().Float64Var(&rent.v, "rent", 0, "Monthly rent")
		c.Flags().Float64Var(&deposit.v, "deposit", 0, "Security deposit")
		c.Flags().StringVar(&status, "status", "", "available, occupied or maintenance")
	}
	build := func(c *cobra.Command) domain.PropertyInput {
		out := in
		out.RentAmount = rent.ptr(c, "rent")
		out.DepositAmount = deposit.ptr(c, "deposit")
		out.Status = domain.PropertyStatus(status)
		return out
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Add a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.managers.Properties.Create(ctx, userID, build(cmd))
			if err != nil {
				return err
			}
			return a.emit(p, func() { a.success("Property added: " + p.ID) })
		},
	}
	propertyFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a property's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.managers.Properties.Update(ctx, userID, args[0], build(cmd))
			if err != nil {
				return err
			}
			return a.emit(p, func() { a.success("Property updated: " + p.ID) })
		},
	}
	propertyFlags(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.managers.Properties.Delete(ctx, userID, args[0], a.confirmer()); err != nil {
				return err
			}
			a.success("Property deleted")
			return nil
		},
	}
	a.deleteFlags(del)

	cmd.AddCommand(create, update, del)
	return cmd
}

func (a *app) leasesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "leases", Aliases: []string{"lease"}, Short: "Manage leases"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List leases of your properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			leases, err := a.managers.Leases.List(ctx, userID)
			if err != nil {
				return err
			}
			return a.emit(leases, func() { a.renderLeaseViews(leases) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "mine",
		Short: "List your own leases as a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			leases, err := a.managers.Leases.ListForTenant(ctx, userID)
			if err != nil {
				return err
			}
			return a.emit(leases, func() { a.renderLeases(leases) })
		},
	})

	var in domain.LeaseInput
	var rent, deposit optFloat
	var dueDay int
	var start, end string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a lease for a signed-up tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.StartDate, err = dateFlag("start", start); err != nil {
				return err
			}
			if in.EndDate, err = dateFlag("end", end); err != nil {
				return err
			}
			in.RentAmount = rent.ptr(cmd, "rent")
			in.DepositAmount = deposit.ptr(cmd, "deposit")
			d := dueDay
			in.PaymentDueDay = &d

			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			l, err := a.managers.Leases.Create(ctx, userID, in)
			if err != nil {
				return err
			}
			return a.emit(l, func() { a.success("Lease created: " + l.ID) })
		},
	}
	create.Flags().StringVar(&in.PropertyID, "property", "", "Property ID")
	create.Flags().StringVar(&in.TenantEmail, "tenant-email", "", "Email the tenant signed up with")
	create.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	create.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	create.Flags().Float64Var(&rent.v, "rent", 0, "Monthly rent")
	create.Flags().Float64Var(&deposit.v, "deposit", 0, "Security deposit")
	create.Flags().IntVar(&dueDay, "due-day", 1, "Day of month rent is due (1-31)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.managers.Leases.Delete(ctx, userID, args[0], a.confirmer()); err != nil {
				return err
			}
			a.success("Lease deleted")
			return nil
		},
	}
	a.deleteFlags(del)

	cmd.AddCommand(create, del)
	return cmd
}

func (a *app) paymentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "payments", Aliases: []string{"payment"}, Short: "Record and review rent payments"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List payments of your leases",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			payments, err := a.managers.Payments.List(ctx, userID)
			if err != nil {
				return err
			}
			return a.emit(payments, func() { a.renderPayments(payments) })
		},
	})

	var in domain.PaymentInput
	var amount, lateFee optFloat
	var due, paid, status string
	create := &cobra.Command{
		Use:   "create",
		Short: "Record a payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.DueDate, err = dateFlag("due", due); err != nil {
				return err
			}
			if paid != "" {
				d, err := dateFlag("paid", paid)
				if err != nil {
					return err
				}
				in.PaidDate = &d
			}
			in.Amount = amount.ptr(cmd, "amount")
			in.LateFee = lateFee.ptr(cmd, "late-fee")
			in.Status = domain.PaymentStatus(status)

			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.managers.Payments.Create(ctx, userID, in)
			if err != nil {
				return err
			}
			return a.emit(p, func() { a.success("Payment recorded: " + p.ID) })
		},
	}
	create.Flags().StringVar(&in.LeaseID, "lease", "", "Lease ID")
	create.Flags().Float64Var(&amount.v, "amount", 0, "Amount due")
	create.Flags().Float64Var(&lateFee.v, "late-fee", 0, "Late fee")
	create.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	create.Flags().StringVar(&paid, "paid", "", "Paid date (YYYY-MM-DD)")
	create.Flags().StringVar(&status, "status", "", "pending, paid, overdue or partial")
	create.Flags().StringVar(&in.Notes, "notes", "", "Notes")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.managers.Payments.Delete(ctx, userID, args[0], a.confirmer()); err != nil {
				return err
			}
			a.success("Payment deleted")
			return nil
		},
	}
	a.deleteFlags(del)

	var outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the payment ledger to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			payments, err := a.managers.Payments.List(ctx, userID)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = fmt.Sprintf("rent-ledger-%s.xlsx", time.Now().Format("2006-01-02"))
			}
			f, err := os.Create(filepath.Clean(outPath))
			if err != nil {
				return err
			}
			if err := report.WritePaymentLedger(f, payments); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.success(fmt.Sprintf("Exported %d payments to %s", len(payments), outPath))
			return nil
		},
	}
	export.Flags().StringVarP(&outPath, "out", "o", "", "Output file")

	cmd.AddCommand(create, del, export)
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show portfolio statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			s := stats.NewAggregator(a.repo, a.logger, nil).Compute(ctx, userID)
			return a.emit(s, func() { a.renderStats(s) })
		},
	}
}
