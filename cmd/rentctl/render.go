package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/R3E-Network/rentals/internal/catalog"
	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/stats"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#2C4A54")
	colorWarn   = lipgloss.Color("#F4D03F")
	colorError  = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorAccent),
	Warning: lipgloss.NewStyle().Foreground(colorWarn),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
	Header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
	Cell:   lipgloss.NewStyle().Padding(0, 1),
}

// emit prints v as JSON with --json, otherwise calls render.
func (a *app) emit(v interface{}, render func()) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	render()
	return nil
}

func (a *app) title(s string) {
	fmt.Fprintln(a.out, styles.Title.Render(s))
}

func (a *app) success(s string) {
	fmt.Fprintln(a.out, styles.Success.Render("✓ ")+s)
}

func (a *app) table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(a.out, styles.Muted.Render("  (none)"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		})
	for _, r := range rows {
		t.Row(r...)
	}
	fmt.Fprintln(a.out, t.Render())
}

func money(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (a *app) renderStats(s stats.Stats) {
	body := fmt.Sprintf("Properties        %d\nActive leases     %d\nPending payments  %d\nTotal revenue     %s",
		s.Properties, s.ActiveLeases, s.PendingPayments, money(s.TotalRevenue))
	fmt.Fprintln(a.out, styles.Box.Render(body))
}

func (a *app) renderProperties(props []domain.Property) {
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		rows = append(rows, []string{p.ID, p.Name, p.Address, optString(p.UnitNumber), money(p.RentAmount), string(p.Status)})
	}
	a.table([]string{"ID", "Name", "Address", "Unit", "Rent", "Status"}, rows)
}

func (a *app) renderLeaseViews(leases []domain.LeaseView) {
	rows := make([][]string, 0, len(leases))
	for _, l := range leases {
		property, tenant := "", ""
		if l.Property != nil {
			property = l.Property.Name
		}
		if l.Tenant != nil {
			tenant = l.Tenant.Email
			if l.Tenant.FullName != "" {
				tenant = l.Tenant.FullName + " <" + l.Tenant.Email + ">"
			}
		}
		rows = append(rows, []string{l.ID, property, tenant, l.StartDate.String() + " → " + l.EndDate.String(),
			money(l.RentAmount), strconv.Itoa(l.PaymentDueDay), string(l.Status)})
	}
	a.table([]string{"ID", "Property", "Tenant", "Term", "Rent", "Due day", "Status"}, rows)
}

func (a *app) renderLeases(leases []domain.Lease) {
	rows := make([][]string, 0, len(leases))
	for _, l := range leases {
		property := l.PropertyID
		if l.Property != nil {
			property = l.Property.Name
		}
		rows = append(rows, []string{property, l.StartDate.String() + " → " + l.EndDate.String(),
			money(l.RentAmount), strconv.Itoa(l.PaymentDueDay), string(l.Status)})
	}
	a.table([]string{"Property", "Term", "Rent", "Due day", "Status"}, rows)
}

func (a *app) renderPayments(payments []domain.Payment) {
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		property, paid := "", ""
		if p.Lease != nil && p.Lease.Property != nil {
			property = p.Lease.Property.Name
		}
		if p.PaidDate != nil {
			paid = p.PaidDate.String()
		}
		rows = append(rows, []string{p.ID, property, p.DueDate.String(), paid, money(p.Amount), money(p.LateFee), string(p.Status)})
	}
	a.table([]string{"ID", "Property", "Due", "Paid", "Amount", "Late fee", "Status"}, rows)
}

func (a *app) renderMessages(msgs []domain.Message) {
	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		at := ""
		if m.CreatedAt != nil {
			at = m.CreatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{at, m.PropertyID, m.SenderID, m.Message, string(m.Status)})
	}
	a.table([]string{"Received", "Property", "From", "Message", "Status"}, rows)
}

func (a *app) renderCatalog(page catalog.Page) {
	a.title(fmt.Sprintf("Available properties (page %d)", page.Index+1))
	rows := make([][]string, 0, len(page.Items))
	for _, p := range page.Items {
		deposit := ""
		if p.DepositAmount != nil {
			deposit = money(*p.DepositAmount)
		}
		rows = append(rows, []string{p.ID, p.Name, p.Address, optString(p.UnitNumber), money(p.RentAmount), deposit, p.LandlordID})
	}
	a.table([]string{"ID", "Name", "Address", "Unit", "Rent", "Deposit", "Landlord"}, rows)

	var nav []string
	if page.HasPrevious {
		nav = append(nav, fmt.Sprintf("--page %d for previous", page.Index-1))
	}
	if page.HasNext {
		nav = append(nav, fmt.Sprintf("--page %d for more", page.Index+1))
	}
	for _, n := range nav {
		fmt.Fprintln(a.out, styles.Muted.Render("  "+n))
	}
}
