package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"claimflow/internal/model"
	"claimflow/internal/service"
)

// -- analyze --

var analyzeCmd = &cobra.Command{
	Use:   "analyze <document-id>",
	Short: "Run an eligibility analysis for a document",
	Long:  "Analyzes a claim using the document's stored extraction and validation output, or the evidence in --evidence.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in := service.AnalyzeInput{}
		if path, _ := cmd.Flags().GetString("evidence"); path != "" {
			var err error
			if in, err = readEvidence(path); err != nil {
				return err
			}
		}
		in.DocumentID = args[0]

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close() //nolint:errcheck

		res, err := svc.claims.Analyze(ctx, in)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		if asJSON(cmd) {
			return printJSON(os.Stdout, res)
		}
		formatAnalysis(os.Stdout, res)
		return nil
	},
}

// -- approve / reject --

func decisionCmd(decision service.Decision, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(decision) + " <document-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close() //nolint:errcheck

			reason, _ := cmd.Flags().GetString("reason")
			doc, err := svc.docs.Decide(ctx, args[0], decision, reason)
			if err != nil {
				return eris.Wrapf(err, "%s", decision)
			}

			if asJSON(cmd) {
				return printJSON(os.Stdout, doc.StatusView())
			}
			formatStatus(os.Stdout, doc.StatusView())
			return nil
		},
	}
	cmd.Flags().String("reason", "", "reason recorded with the decision")
	return cmd
}

// -- status --

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show the processing status of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close() //nolint:errcheck

		view, err := svc.docs.Status(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if asJSON(cmd) {
			return printJSON(os.Stdout, view)
		}
		formatStatus(os.Stdout, *view)
		return nil
	},
}

func readEvidence(path string) (service.AnalyzeInput, error) {
	var in service.AnalyzeInput
	b, err := os.ReadFile(path)
	if err != nil {
		return in, eris.Wrapf(err, "read evidence %s", path)
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return in, eris.Wrapf(err, "parse evidence %s", path)
	}
	return in, nil
}

func formatAnalysis(w io.Writer, res *model.AnalysisResult) {
	fmt.Fprintf(w, "Document:       %s\n", res.DocumentID)
	fmt.Fprintf(w, "Eligible:       %t\n", res.IsEligible)
	fmt.Fprintf(w, "Recommendation: %s\n", res.Recommendation)
	fmt.Fprintf(w, "Confidence:     %.2f\n", res.Confidence)
	fmt.Fprintf(w, "Analyzed at:    %s\n", res.AnalyzedAt.Format(time.RFC3339))

	if len(res.RulesApplied) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RULE\tRESULT\tREASON")
		for _, r := range res.RulesApplied {
			result := "pass"
			if !r.Passed {
				result = "FAIL"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.RuleName, result, r.Reason)
		}
		tw.Flush() //nolint:errcheck
	}

	fmt.Fprintf(w, "\nReasoning: %s\n", res.Reasoning)
}

func formatStatus(w io.Writer, v model.DocumentStatusView) {
	fmt.Fprintf(w, "%s  %s  (updated %s)\n", v.ID, v.Status, v.LastUpdated.Format("2006-01-02 15:04"))
	if v.Reason != "" {
		fmt.Fprintf(w, "  reason: %s\n", v.Reason)
	}
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().String("evidence", "", "JSON file with flight_data and validation_result")

	rootCmd.AddCommand(
		analyzeCmd,
		decisionCmd(service.DecisionApprove, "Approve a claim"),
		decisionCmd(service.DecisionReject, "Reject a claim"),
		statusCmd,
	)
}
