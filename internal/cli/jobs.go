package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/mealplans/internal/services"
)

func newSweepCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire active plans whose window has ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(options)
			if err != nil {
				return err
			}
			defer rt.Close()
			engine, err := rt.engine(cmd.Context())
			if err != nil {
				return err
			}

			summary, err := engine.Sweeper.Sweep(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if options.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), summary)
			}
			printSweepSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newNotifyCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Send advance notices for plans starting in two or three days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(options)
			if err != nil {
				return err
			}
			defer rt.Close()
			engine, err := rt.engine(cmd.Context())
			if err != nil {
				return err
			}

			summary, err := engine.Notifier.NotifyUpcoming(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if options.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), summary)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Upcoming plans: %d, sent: %d, skipped: %d\n", summary.Found, summary.NotificationsSent, summary.Skipped)
			printErrors(cmd.OutOrStdout(), summary.Errors)
			return nil
		},
	}
}

func newDeliverCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deliver",
		Short: "Deliver weekly reminders that are due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(options)
			if err != nil {
				return err
			}
			defer rt.Close()
			engine, err := rt.engine(cmd.Context())
			if err != nil {
				return err
			}

			summary, err := engine.Delivery.DeliverDue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if options.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), summary)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Due reminders: %d, sent: %d\n", summary.Due, summary.Sent)
			printErrors(cmd.OutOrStdout(), summary.Errors)
			return nil
		},
	}
}

func printSweepSummary(out io.Writer, summary services.SweepSummary) {
	_, _ = fmt.Fprintf(out, "Overdue plans: %d, expired: %d\n", summary.Found, summary.Updated)
	printErrors(out, summary.Errors)
}

func printErrors(out io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "Errors (%d):\n  %s\n", len(errs), strings.Join(errs, "\n  "))
}
