package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"montoit/internal/app"
	"montoit/internal/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var scoreRent float64

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [user-id]",
	Short: "Compute the applicant score of a user",
	Long:  `Compute the 0-100 applicant score of a user against a monthly rent in XOF, with the contribution of each factor.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		if scoreRent < 0 {
			return fmt.Errorf("--rent must not be negative")
		}
		return withContainer(cmd.Context(), func(c *app.Container) error {
			result, err := c.Services.Scoring.ScoreApplicant(cmd.Context(), userID, scoreRent)
			if err != nil {
				return err
			}
			return printScore(cmd.OutOrStdout(), result)
		})
	},
}

// mfaAuditCmd represents the mfa-audit command
var mfaAuditCmd = &cobra.Command{
	Use:   "mfa-audit",
	Short: "List privileged users without MFA",
	Long:  `Display the admin, agency and trust third party accounts that have not enabled MFA, with their grace period status.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *app.Container) error {
			entries, err := c.Services.MFA.Audit(cmd.Context())
			if err != nil {
				return err
			}
			return printMFAAudit(cmd.OutOrStdout(), entries)
		})
	},
}

// runJobCmd represents the run-job command
var runJobCmd = &cobra.Command{
	Use:   "run-job [name]",
	Short: "Run a maintenance job now",
	Long:  `Run one of the scheduled maintenance jobs once: lease-expiry, mandate-expiry, mfa-grace-reminders, rate-limit-purge or rent-overdue.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *app.Container) error {
			tasks := c.Services.MaintenanceTasks(c.Repos, c.Logger)
			if err := tasks.Run(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s completed\n", args[0])
			return nil
		})
	},
}

func init() {
	scoreCmd.Flags().Float64Var(&scoreRent, "rent", 0, "Monthly rent in XOF used for the income ratio")
}

func printScore(w io.Writer, result *services.ScoreResult) error {
	fmt.Fprintf(w, "Score: %d/100 (%s)\n", result.Score, result.Recommendation)
	if len(result.Factors) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FACTOR\tPOINTS\tMAX\tDETAIL")
	for _, f := range result.Factors {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", f.Name, f.Points, f.Max, f.Detail)
	}
	return tw.Flush()
}

func printMFAAudit(w io.Writer, entries []services.MFAAuditEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "All privileged users have MFA enabled.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tROLE\tSTATUS\tDAYS LEFT")
	for _, e := range entries {
		days := "-"
		if e.Compliance.Status == services.MFAGracePeriod {
			days = fmt.Sprint(e.Compliance.DaysRemaining)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.User.Email, e.User.Role, strings.ReplaceAll(e.Compliance.Status, "_", " "), days)
	}
	return tw.Flush()
}
