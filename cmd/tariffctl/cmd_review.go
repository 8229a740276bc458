package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tariffstack/internal/model"
)

var (
	reviewStatusFlag string
	reviewResolvedBy string
	reviewResolution string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Triage the needs-review queue (entries a failed Write Gate filed for a human)",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review entries, optionally filtered by status",
	RunE:  runReviewList,
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve <review-id>",
	Short: "Mark a review entry resolved with a human decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewResolve,
}

var reviewDismissCmd = &cobra.Command{
	Use:   "dismiss <review-id>",
	Short: "Dismiss a review entry as not requiring action",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewDismiss,
}

func init() {
	reviewListCmd.Flags().StringVar(&reviewStatusFlag, "status", "", "filter by status: pending, resolved, dismissed (default: all)")
	reviewResolveCmd.Flags().StringVar(&reviewResolvedBy, "by", "tariffctl", "who resolved this entry")
	reviewResolveCmd.Flags().StringVar(&reviewResolution, "resolution", "", "free-text resolution note")
	reviewDismissCmd.Flags().StringVar(&reviewResolvedBy, "by", "tariffctl", "who dismissed this entry")
	reviewDismissCmd.Flags().StringVar(&reviewResolution, "resolution", "", "free-text resolution note")

	reviewCmd.AddCommand(reviewListCmd, reviewResolveCmd, reviewDismissCmd)
}

func runReviewList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, resolvedConfigPath())
	if err != nil {
		return infraErr(err)
	}
	defer a.close()

	status := model.ReviewStatus(reviewStatusFlag)
	entries, err := a.reviews.List(ctx, status)
	if err != nil {
		return infraErr(err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no review entries")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  hts=%-14s status=%-9s priority=%d reason=%-20s %s\n",
			e.ID, e.HTSCode, e.Status, e.Priority, e.BlockReason, e.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runReviewResolve(cmd *cobra.Command, args []string) error {
	return resolveReview(cmd, args[0], false)
}

func runReviewDismiss(cmd *cobra.Command, args []string) error {
	return resolveReview(cmd, args[0], true)
}

func resolveReview(cmd *cobra.Command, id string, dismiss bool) error {
	ctx := context.Background()
	a, err := newApp(ctx, resolvedConfigPath())
	if err != nil {
		return infraErr(err)
	}
	defer a.close()

	var resolveErr error
	if dismiss {
		resolveErr = a.reviews.Dismiss(ctx, id, reviewResolvedBy, reviewResolution)
	} else {
		resolveErr = a.reviews.Resolve(ctx, id, reviewResolvedBy, reviewResolution)
	}
	if resolveErr != nil {
		return validationErr(fmt.Errorf("resolve review %s: %w", id, resolveErr))
	}
	if dismiss {
		fmt.Fprintf(cmd.OutOrStdout(), "review %s dismissed\n", id)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "review %s marked resolved\n", id)
	}
	return nil
}
