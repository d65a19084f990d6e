package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"claimflow/internal/model"
	"claimflow/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage business rules",
}

// -- rules list --

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List business rules in priority order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close() //nolint:errcheck

		all, _ := cmd.Flags().GetBool("all")
		list, err := svc.claims.ListRules(ctx, all)
		if err != nil {
			return eris.Wrap(err, "rules list")
		}

		if asJSON(cmd) {
			return printJSON(os.Stdout, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No rules found.")
			return nil
		}
		formatRules(os.Stdout, list)
		return nil
	},
}

// -- rules create --

var rulesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a business rule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rule, err := ruleFromFlags(cmd)
		if err != nil {
			return err
		}

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close() //nolint:errcheck

		created, err := svc.claims.CreateRule(ctx, rule)
		if err != nil {
			return eris.Wrap(err, "rules create")
		}

		if asJSON(cmd) {
			return printJSON(os.Stdout, created)
		}
		fmt.Fprintf(os.Stdout, "Created rule %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

// -- rules seed --

var rulesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert rules from a YAML seed file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("file")
		seed, err := rules.LoadSeedFile(path)
		if err != nil {
			return err
		}

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close() //nolint:errcheck

		n, err := svc.claims.SeedRules(ctx, seed)
		if err != nil {
			return eris.Wrap(err, "rules seed")
		}
		fmt.Fprintf(os.Stdout, "Seeded %d rules from %s\n", n, path)
		return nil
	},
}

func ruleFromFlags(cmd *cobra.Command) (*model.BusinessRule, error) {
	name, _ := cmd.Flags().GetString("name")
	condition, _ := cmd.Flags().GetString("condition")
	action, _ := cmd.Flags().GetString("action")
	if name == "" || condition == "" || action == "" {
		return nil, eris.New("--name, --condition and --action are required")
	}
	description, _ := cmd.Flags().GetString("description")
	priority, _ := cmd.Flags().GetInt("priority")
	inactive, _ := cmd.Flags().GetBool("inactive")

	return &model.BusinessRule{
		Name:        name,
		Description: description,
		Condition:   condition,
		Action:      action,
		Priority:    priority,
		IsActive:    !inactive,
	}, nil
}

func formatRules(w io.Writer, list []model.BusinessRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tNAME\tACTIVE\tCONDITION\tACTION")
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\n", r.Priority, r.Name, r.IsActive, r.Condition, r.Action)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rulesListCmd.Flags().Bool("all", false, "include inactive rules")

	rulesCreateCmd.Flags().String("name", "", "rule name, e.g. delay_threshold")
	rulesCreateCmd.Flags().String("description", "", "human readable description")
	rulesCreateCmd.Flags().String("condition", "", "condition expression")
	rulesCreateCmd.Flags().String("action", "", "action when the condition holds")
	rulesCreateCmd.Flags().Int("priority", 0, "evaluation order, lowest first")
	rulesCreateCmd.Flags().Bool("inactive", false, "create the rule disabled")

	rulesSeedCmd.Flags().String("file", "configs/business_rules.yaml", "YAML seed file")

	rulesCmd.AddCommand(rulesListCmd, rulesCreateCmd, rulesSeedCmd)
	rootCmd.AddCommand(rulesCmd)
}
