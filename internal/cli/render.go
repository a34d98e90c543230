package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"familysavings/internal/aggregate"
	"familysavings/internal/amqp"
	"familysavings/internal/cache"
	"familysavings/internal/core"
	"familysavings/internal/tracker"
)

const (
	dateLayout = "2006-01-02"
	barWidth   = 20
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// ProgressBar draws fraction (clamped to [0, 1]) as a fixed width bar.
func ProgressBar(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction*float64(width) + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

// RenderError prints the inline error line shown for a failed command.
func RenderError(w io.Writer, msg string) {
	fmt.Fprintf(w, "error: %s\n", msg)
}

// RenderNotices warns when the data shown is not a fresh, complete load.
func RenderNotices(w io.Writer, snap cache.PlanSnapshot) {
	if snap.Stale {
		fmt.Fprintf(w, "! backend unavailable, showing data saved at %s\n", snap.FetchedAt.Local().Format("2006-01-02 15:04"))
	}
	if snap.Partial {
		fmt.Fprintln(w, "! some members or payments could not be loaded")
	}
}

func RenderPlans(w io.Writer, plans []core.Plan) error {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans yet.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTARGET\tMONTHS\tMOTIVE")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, core.FormatAmount(p.TargetAmount), p.Months, p.Motive)
	}
	return tw.Flush()
}

func RenderMembers(w io.Writer, members []core.Member) error {
	if len(members) == 0 {
		fmt.Fprintln(w, "No members in this plan.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tMONTHLY\tJOINED")
	for _, m := range members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, core.FormatAmount(m.ContributionPerMonth), formatDate(m.JoinedAt))
	}
	return tw.Flush()
}

// RenderSummary prints the plan header, progress and the per member totals.
func RenderSummary(w io.Writer, sum aggregate.PlanSummary) error {
	fmt.Fprintf(w, "%s (%s)\n", sum.Plan.Name, sum.Plan.Motive)
	fmt.Fprintf(w, "Collected %s of %s  %s %s\n",
		core.FormatAmount(sum.TotalCollected), core.FormatAmount(sum.Plan.TargetAmount),
		ProgressBar(sum.Progress, barWidth), formatPercent(sum.DisplayPercent))
	if sum.GoalReached {
		fmt.Fprintln(w, "Goal reached!")
	} else {
		fmt.Fprintf(w, "Remaining %s over %d months\n", core.FormatAmount(sum.Remaining), sum.Plan.Months)
	}
	fmt.Fprintf(w, "Payments: %d\n\n", sum.PaymentCount)

	if len(sum.Members) == 0 {
		fmt.Fprintln(w, "No members in this plan.")
	} else {
		tw := newTable(w)
		fmt.Fprintln(tw, "MEMBER\tPAID\tMONTHLY")
		for _, m := range sum.Members {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Member.Name, core.FormatAmount(m.Collected), core.FormatAmount(m.Member.ContributionPerMonth))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if sum.Unmatched.IsPositive() {
		fmt.Fprintf(w, "Payments from unknown members: %s\n", core.FormatAmount(sum.Unmatched))
	}
	return nil
}

func RenderStatement(w io.Writer, st aggregate.MemberStatement) error {
	fmt.Fprintf(w, "%s\n", st.Member.Name)
	fmt.Fprintf(w, "Paid %s, monthly contribution %s  %s\n",
		core.FormatAmount(st.TotalPaid), core.FormatAmount(st.Member.ContributionPerMonth),
		ProgressBar(st.ContributionProgress, barWidth))
	fmt.Fprintf(w, "Plan remaining: %s\n\n", core.FormatAmount(st.PlanRemaining))

	if len(st.Payments) == 0 {
		fmt.Fprintln(w, "No payments yet.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tID")
	for _, p := range st.Payments {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", formatDate(p.Date), core.FormatAmount(p.Amount), p.ID)
	}
	return tw.Flush()
}

// RenderOverview prints one row per plan followed by a notice for rows that
// come from stored or incomplete data.
func RenderOverview(w io.Writer, rows []tracker.PlanOverview) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No plans yet.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "PLAN\tCOLLECTED\tTARGET\tPROGRESS\t")
	var (
		savedAt time.Time
		partial []string
	)
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Plan.Name,
			core.FormatAmount(s.TotalCollected), core.FormatAmount(s.Plan.TargetAmount),
			formatPercent(s.DisplayPercent), ProgressBar(s.Progress, barWidth))
		if s.Stale && (savedAt.IsZero() || s.FetchedAt.Before(savedAt)) {
			savedAt = s.FetchedAt
		}
		if s.Partial {
			partial = append(partial, s.Plan.Name)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !savedAt.IsZero() {
		RenderNotices(w, cache.PlanSnapshot{Stale: true, FetchedAt: savedAt})
	}
	if len(partial) > 0 {
		fmt.Fprintf(w, "! some members or payments could not be loaded for: %s\n", strings.Join(partial, ", "))
	}
	return nil
}

func RenderEvent(w io.Writer, e *amqp.Event) {
	ts := e.Timestamp.Local().Format("15:04:05")
	switch e.Type {
	case amqp.EventPaymentRecorded:
		fmt.Fprintf(w, "%s %s plan=%s member=%s amount=%s total=%s\n", ts, e.Type, e.PlanID, e.MemberID,
			core.FormatAmount(e.Amount), core.FormatAmount(e.TotalCollected))
	case amqp.EventGoalReached:
		fmt.Fprintf(w, "%s %s plan=%s total=%s target=%s\n", ts, e.Type, e.PlanID,
			core.FormatAmount(e.TotalCollected), core.FormatAmount(e.TargetAmount))
	case amqp.EventMemberAdded:
		fmt.Fprintf(w, "%s %s plan=%s member=%s\n", ts, e.Type, e.PlanID, e.MemberID)
	default:
		fmt.Fprintf(w, "%s %s plan=%s\n", ts, e.Type, e.PlanID)
	}
}
