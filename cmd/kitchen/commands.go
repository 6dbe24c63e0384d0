package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"kitchenledger/internal/analytics"
	"kitchenledger/internal/auth"
	"kitchenledger/internal/core"
	"kitchenledger/internal/services"
)

const usage = `usage: kitchen <command> [arguments]

Account:
  login <email>          send a one-time code to email
  resend                 send the code again
  change-email           forget the pending address
  verify <code>          finish logging in
  logout                 end the session
  status                 show the login state
  restaurant [name]      show or set the restaurant name

Ledger:
  summary                revenue, expenses and net profit
  list [-q text] [-type Expense|Revenue|all] [-sort date|amount]
  add -type Expense|Revenue -category name -amount n [-desc text] [-orders n]
  delete <id>
  analytics              breakdowns by category and source`

const defaultRestaurantName = "Cloud Kitchen"

var errNotLoggedIn = errors.New("not logged in, run 'kitchen login <email>' first")

type profileClient interface {
	GetRestaurantProfile(ctx context.Context) (core.RestaurantProfile, error)
	SetRestaurantProfile(ctx context.Context, name string) (string, error)
}

type app struct {
	out      io.Writer
	auth     *auth.Controller
	dash     *services.Dashboard
	profiles profileClient
}

type command struct {
	run       func(a *app, ctx context.Context, args []string) error
	protected bool
}

var commands = map[string]command{
	"login":        {run: (*app).login},
	"resend":       {run: (*app).resend},
	"change-email": {run: (*app).changeEmail},
	"verify":       {run: (*app).verify},
	"logout":       {run: (*app).logout},
	"status":       {run: (*app).status},
	"restaurant":   {run: (*app).restaurant, protected: true},
	"summary":      {run: (*app).summary, protected: true},
	"list":         {run: (*app).list, protected: true},
	"add":          {run: (*app).add, protected: true},
	"delete":       {run: (*app).remove, protected: true},
	"analytics":    {run: (*app).analytics, protected: true},
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(a.out, usage)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, run 'kitchen help'", args[0])
	}
	if cmd.protected && a.auth.State().Phase != auth.LoggedIn {
		return errNotLoggedIn
	}
	err := cmd.run(a, ctx, args[1:])
	if a.auth.Observe(ctx, err) {
		return fmt.Errorf("%w (session expired, log in again)", err)
	}
	return err
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: kitchen login <email>")
	}
	if err := core.ValidateEmail(args[0]); err != nil {
		return err
	}
	st, err := a.auth.RequestCode(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Code sent to %s. Run 'kitchen verify <code>'.\n", st.Email)
	return nil
}

func (a *app) resend(ctx context.Context, _ []string) error {
	wait, err := a.auth.ResendCode(ctx)
	if errors.Is(err, auth.ErrCooldown) {
		return fmt.Errorf("%w (%s left)", err, wait)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Code sent again to %s.\n", a.auth.State().Email)
	return nil
}

func (a *app) changeEmail(ctx context.Context, _ []string) error {
	if _, err := a.auth.ChangeEmail(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Pending address cleared.")
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: kitchen verify <code>")
	}
	if _, err := a.auth.Verify(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

func (a *app) logout(ctx context.Context, _ []string) error {
	if _, err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) status(ctx context.Context, _ []string) error {
	st := a.auth.State()
	switch {
	case st.Phase == auth.LoggedIn:
		fmt.Fprintln(a.out, "Logged in.")
	case st.Step == auth.AwaitingCode:
		fmt.Fprintf(a.out, "Waiting for the code sent to %s.\n", st.Email)
	default:
		fmt.Fprintln(a.out, "Logged out.")
	}
	return nil
}

func (a *app) restaurant(ctx context.Context, args []string) error {
	if len(args) == 0 {
		p, err := a.profiles.GetRestaurantProfile(ctx)
		if err != nil {
			return err
		}
		if !p.HasName() {
			fmt.Fprintf(a.out, "%s (no name set)\n", defaultRestaurantName)
			return nil
		}
		fmt.Fprintln(a.out, p.DisplayName(defaultRestaurantName))
		return nil
	}
	name, err := core.ValidateRestaurantName(strings.Join(args, " "))
	if err != nil {
		return err
	}
	msg, err := a.profiles.SetRestaurantProfile(ctx, name)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Restaurant name saved."
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) summary(ctx context.Context, _ []string) error {
	snap, err := a.dash.Refresh(ctx)
	if err != nil {
		return err
	}
	s := snap.Summary
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Revenue\t%s\n", core.FormatAmount(s.Revenue))
	fmt.Fprintf(tw, "Total Expenses\t%s\n", core.FormatAmount(s.Expense))
	fmt.Fprintf(tw, "Net Profit\t%s\n", core.FormatAmount(s.ProfitLoss))
	fmt.Fprintf(tw, "Profit Margin\t%.1f%%\n", analytics.ProfitMargin(s.Revenue, s.ProfitLoss))
	return tw.Flush()
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	q := fs.String("q", "", "search description and category")
	kind := fs.String("type", services.KindAll, "Expense, Revenue or all")
	sortBy := fs.String("sort", string(services.SortByDate), "date or amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := services.ParseFilter(*q, *kind, *sortBy)
	if err != nil {
		return err
	}

	snap, err := a.dash.Refresh(ctx)
	if err != nil {
		return err
	}
	rows := filter.Apply(snap.Transactions)
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No transactions found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY/SOURCE\tDESCRIPTION\tAMOUNT")
	for _, tx := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.CreatedAt.Display("2006-01-02"), tx.Kind, tx.CategorySource, tx.Description, core.FormatAmount(tx.Amount))
	}
	t := services.Totals(snap.Transactions)
	fmt.Fprintf(tw, "\t\t\t\tRevenue\t%s\n", core.FormatAmount(t.Revenue))
	fmt.Fprintf(tw, "\t\t\t\tExpenses\t%s\n", core.FormatAmount(t.Expenses))
	fmt.Fprintf(tw, "\t\t\t\tNet\t%s\n", core.FormatAmount(t.Net))
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	in := core.DraftInput{}
	fs.StringVar(&in.Kind, "type", "", "Expense or Revenue")
	fs.StringVar(&in.CategorySource, "category", "", "expense category or payout platform")
	fs.StringVar(&in.Amount, "amount", "", "amount")
	fs.StringVar(&in.Description, "desc", "", "description, expenses only")
	fs.StringVar(&in.OrderCount, "orders", "", "order count, payouts only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := a.dash.Add(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Transaction added. %d transactions, net %s.\n",
		len(snap.Transactions), core.FormatAmount(snap.Summary.ProfitLoss))
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: kitchen delete <id>")
	}
	snap, err := a.dash.Delete(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Transaction deleted. %d transactions left.\n", len(snap.Transactions))
	return nil
}

func (a *app) analytics(ctx context.Context, _ []string) error {
	snap, err := a.dash.Refresh(ctx)
	if err != nil {
		return err
	}
	rep := snap.Report
	if !rep.HasData {
		fmt.Fprintln(a.out, "No data yet. Add a transaction to see analytics.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Transactions\t%d\n", rep.TransactionCount)
	fmt.Fprintf(tw, "Average value\t%s\n", core.FormatAmount(rep.AverageTransactionValue))
	fmt.Fprintf(tw, "Profit margin\t%.1f%%\n", rep.ProfitMargin)
	for _, p := range rep.Radial {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", p.Label, core.FormatAmount(p.Value), p.Percent)
	}
	writeSlices(tw, "Expenses by category", rep.ExpenseByCategory)
	writeSlices(tw, "Revenue by source", rep.RevenueBySource)
	return tw.Flush()
}

func writeSlices(w io.Writer, title string, slices []analytics.Slice) {
	if len(slices) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, s := range slices {
		fmt.Fprintf(w, "  %s\t%s\t%.1f%%\t%d\n", s.Name, core.FormatAmount(s.Amount), s.Share, s.Count)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
