package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"familysavings/internal/aggregate"
	"familysavings/internal/amqp"
	"familysavings/internal/core"
	"familysavings/internal/tracker"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(ctx context.Context, r *runner, args []string) error
}

var commands = map[string]command{
	"plans":       {"plans", runPlans},
	"create-plan": {"create-plan -name NAME -target AMOUNT -months N [-motive TEXT]", runCreatePlan},
	"members":     {"members -plan ID", runMembers},
	"add-member":  {"add-member -plan ID -name NAME [-contribution AMOUNT]", runAddMember},
	"pay":         {"pay -plan ID -member ID -amount AMOUNT [-force]", runPay},
	"summary":     {"summary -plan ID", runSummary},
	"statement":   {"statement -plan ID -member ID", runStatement},
	"overview":    {"overview", runOverview},
	"watch":       {"watch [-plan ID] [-interval DURATION]", runWatch},
	"events":      {"events", runEvents},
}

type runner struct {
	app    *App
	stdout io.Writer
	stderr io.Writer
}

// failure carries a message already fit for the user.
type failure struct{ msg string }

func (f failure) Error() string { return f.msg }

// Run executes one subcommand and returns the process exit code.
func Run(ctx context.Context, app *App, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		Usage(stderr)
		return ExitUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		RenderError(stderr, fmt.Sprintf("unknown command %q", args[0]))
		Usage(stderr)
		return ExitUsage
	}

	r := &runner{app: app, stdout: stdout, stderr: stderr}
	err := cmd.run(ctx, r, args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "usage: savings %s\n", cmd.usage)
		return ExitUsage
	default:
		RenderError(stderr, err.Error())
		return ExitError
	}
}

// Usage lists every subcommand.
func Usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: savings <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func (r *runner) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string, required map[string]*string) error {
	if err := fs.Parse(args); err != nil {
		// flag has already reported the problem on the set's output.
		return errUsage
	}
	var missing []string
	for name, v := range required {
		if strings.TrimSpace(*v) == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		fmt.Fprintf(fs.Output(), "missing %s\n", strings.Join(missing, ", "))
		return errUsage
	}
	return nil
}

func message(msg string) error { return failure{msg} }

func runPlans(ctx context.Context, r *runner, args []string) error {
	if err := parse(r.flags("plans"), args, nil); err != nil {
		return err
	}
	res := r.app.Service.Plans(ctx)
	plans, err := res.Unwrap()
	if err != nil {
		return message(res.Message())
	}
	return RenderPlans(r.stdout, plans)
}

func runCreatePlan(ctx context.Context, r *runner, args []string) error {
	fs := r.flags("create-plan")
	name := fs.String("name", "", "plan name")
	target := fs.String("target", "", "target amount")
	months := fs.Int("months", 0, "duration in months")
	motive := fs.String("motive", "", "what the family is saving for")
	if err := parse(fs, args, map[string]*string{"name": name, "target": target}); err != nil {
		return err
	}
	amount, err := core.ParseAmount(*target)
	if err != nil {
		return message(core.ErrInvalidTarget.Error())
	}

	res := r.app.Service.CreatePlan(ctx, core.CreatePlanRequest{
		Name:         *name,
		TargetAmount: amount,
		Motive:       *motive,
		Months:       *months,
	})
	plan, err := res.Unwrap()
	if err != nil {
		return message(res.Message())
	}
	fmt.Fprintf(r.stdout, "Created plan %s (%s)\n", plan.Name, plan.ID)
	return nil
}

func runMembers(ctx context.Context, r *runner, args []string) error {
	fs := r.flags("members")
	planID := fs.String("plan", "", "plan id")
	if err := parse(fs, args, map[string]*string{"plan": planID}); err != nil {
		return err
	}
	res := r.app.Service.LoadPlan(ctx, *planID)
	snap, err := res.Unwrap()
	if err != nil {
		return message(res.Message())
	}
	RenderNotices(r.stdout, snap)
	return RenderMembers(r.stdout, snap.Members)
}

func runAddMember(ctx context.Context, r *runner, args []string) error {
	fs := r.flags("add-member")
	planID := fs.String("plan", "", "plan id")
	name := fs.String("name", "", "member name")
	contribution := fs.String("contribution", "", "monthly contribution")
	if err := parse(fs, args, map[string]*string{"plan": planID, "name": name}); err != nil {
		return err
	}
	perMonth, err := core.ParseContribution(*contribution)
	if err != nil {
		return message(err.Error())
	}

	res := r.app.Service.AddMember(ctx, core.CreateMemberRequest{
		Name:                 *name,
		PlanID:               *planID,
		ContributionPerMonth: perMonth,
	})
	member, err := res.Unwrap()
	if err != nil {
		return message(res.Message())
	}
	fmt.Fprintf(r.stdout, "Added %s (%s)\n", member.Name, member.ID)
	return nil
}

func runPay(ctx context.Context, r *runner, args []string) error {
	fs := r.flags("pay")
	planID := fs.String("plan", "", "plan id")
	memberID := fs.String("member", "", "member id")
	amountStr := fs.String("amount", "", "payment amount")
	force := fs.Bool("force", false, "record the payment even if it exceeds the remaining goal")
	if err := parse(fs, args, map[string]*string{"plan": planID, "member": memberID, "amount": amountStr}); err != nil {
		return err
	}
	amount, err := core.ParseAmount(*amountStr)
	if err != nil {
		return message(err.Error())
	}

	res := r.app.Service.RegisterPayment(ctx, core.CreatePaymentRequest{
		Amount:   amount,
		MemberID: *memberID,
		PlanID:   *planID,
	}, *force)
	payment, err := res.Unwrap()
	if err != nil {
		if errors.Is(err, tracker.ErrExceedsRemaining) {
			return message(res.Message() + " (use -force to record it anyway)")
		}
		return message(res.Message())
	}
	fmt.Fprintf(r.stdout, "Recorded %s (%s)\n", core.FormatAmount(payment.Amount), payment.ID)
	return nil
}

func runSummary(ctx context.Context, r *runner, args []string) error {
	fs := r.flags("summary")
	planID := fs.String("plan", "", "plan id")
	if err := parse(fs, args, map[string]*string{"plan": planID}); err != nil {
		return err
	}
	return r.summary(ctx, *planID)
}

func (r *runner) summary(ctx context.Context, planID string) error {
	res := r.app.Service.LoadPlan(ctx, planID)
	snap, err := res.Unwrap()
	if err != nil {
		return message(res.Message())
	}
	RenderNotices(r.stdout, snap)
	return RenderSummary(r.stdout, aggregate.Summarize(snap.Plan, snap.Members, snap.Payments))
}

func runStatement(ctx context.Context, r *runner, args []string) error {
	fs := r.flags("statement")
	planID := fs.String("plan", "", "plan id")
	memberID := fs.String("member", "", "member id")
	if err := parse(fs, args, map[string]*string{"plan": planID, "member": memberID}); err != nil {
		return err
	}
	res := r.app.Service.MemberStatement(ctx, *planID, *memberID)
	st, err := res.Unwrap()
	if err != nil {
		return message(res.Message())
	}
	return RenderStatement(r.stdout, st)
}

func runOverview(ctx context.Context, r *runner, args []string) error {
	if err := parse(r.flags("overview"), args, nil); err != nil {
		return err
	}
	return r.overview(ctx)
}

func (r *runner) overview(ctx context.Context) error {
	res := r.app.Service.Overview(ctx)
	sums, err := res.Unwrap()
	if err != nil {
		return message(res.Message())
	}
	return RenderOverview(r.stdout, sums)
}

// runWatch prints the overview (or one plan) and reprints it after every
// background refresh until ctx is cancelled.
func runWatch(ctx context.Context, r *runner, args []string) error {
	fs := r.flags("watch")
	planID := fs.String("plan", "", "plan id (default: every plan)")
	interval := fs.Duration("interval", r.app.Config.RefreshInterval, "refresh interval")
	if err := parse(fs, args, nil); err != nil {
		return err
	}

	show := func() error {
		fmt.Fprintf(r.stdout, "\n== %s ==\n", time.Now().Format("15:04:05"))
		if *planID != "" {
			return r.summary(ctx, *planID)
		}
		return r.overview(ctx)
	}
	if err := show(); err != nil {
		return err
	}

	r.app.Caches.StartCleanup(*interval)
	refresher := tracker.NewRefresher(r.app.Service, tracker.RefresherConfig{
		Interval: *interval,
		OnRefresh: func(err error) {
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				RenderError(r.stderr, err.Error())
			}
			if err := show(); err != nil {
				RenderError(r.stderr, err.Error())
			}
		},
	})
	if err := refresher.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return refresher.Stop(stopCtx)
}

// runEvents prints events from the broker queue until ctx is cancelled.
func runEvents(ctx context.Context, r *runner, args []string) error {
	if err := parse(r.flags("events"), args, nil); err != nil {
		return err
	}
	if r.app.Events == nil {
		return message("event broker not configured (set AMQP_URL)")
	}
	err := r.app.Events.Consume(ctx, func(e *amqp.Event) error {
		RenderEvent(r.stdout, e)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
