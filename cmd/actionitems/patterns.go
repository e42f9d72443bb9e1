package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/actionitems/internal/patterns"
)

func newPatternsCmd(g *globalFlags) *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the task detection rules",
		Long: `List the task rules in match order with their type and base priority.

Without --file the rule file from the config is used, or the built-in tables.

Examples:
  actionitems patterns
  actionitems patterns --file team-rules.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				file = cfg.Patterns.File
			}
			lib, err := patterns.LoadFile(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Version string          `json:"version"`
					Rules   []patterns.Rule `json:"rules"`
				}{lib.Version(), lib.Rules()})
			}

			fmt.Fprintf(out, "patterns %s\n\n", lib.Version())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tPRIORITY")
			for _, r := range lib.Rules() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Type, r.Priority)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON rule file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
