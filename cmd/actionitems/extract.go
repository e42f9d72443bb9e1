package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/logging"
	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

type extractFlags struct {
	referenceDate string
	dedup         string
	method        string
	arbiter       bool
	output        string
	summary       bool
	workers       int
}

func newExtractCmd(g *globalFlags) *cobra.Command {
	f := &extractFlags{}

	cmd := &cobra.Command{
		Use:   "extract <transcript.json>",
		Short: "Extract action items from a transcript file",
		Long: `Extract action items from a transcript JSON file and print the result as JSON.

Relative dates ("tomorrow", "next Monday") resolve against --reference-date,
or against today when it is not set.

Examples:
  # Rule-based extraction
  actionitems extract meeting.json

  # Anchor dates and write the result to a file
  actionitems extract meeting.json --reference-date 2025-11-05 -o tasks.json

  # Merge paraphrased tasks and ask the LLM about ambiguous ones
  actionitems extract meeting.json --dedup semantic --llm --summary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, g, f, args[0])
		},
	}

	cmd.Flags().StringVar(&f.referenceDate, "reference-date", "", "anchor for relative dates (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.dedup, "dedup", "", "deduplication strategy: lexical or semantic")
	cmd.Flags().StringVar(&f.method, "method", "", "extraction method: rules or llm")
	cmd.Flags().BoolVar(&f.arbiter, "llm", false, "refine ambiguous tasks with the configured LLM")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the JSON result to this file instead of stdout")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "print a per-assignee summary to stderr")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "segments processed in parallel")

	return cmd
}

func runExtract(cmd *cobra.Command, g *globalFlags, f *extractFlags, path string) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if f.referenceDate != "" {
		cfg.Extraction.ReferenceDate = f.referenceDate
	}
	if f.dedup != "" {
		cfg.Dedup.Strategy = f.dedup
	}
	if f.method != "" {
		cfg.Extraction.Method = f.method
	}
	if f.arbiter {
		cfg.Arbiter.Enabled = true
	}
	if f.workers > 0 {
		cfg.Extraction.Workers = f.workers
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx = logging.WithRunID(ctx, uuid.NewString())
	ctx = logging.WithTranscriptFile(ctx, path)
	log := a.logger.Underlying().With(logging.ContextFields(ctx)...)

	parsed, err := transcript.Load(path)
	if err != nil {
		return err
	}
	if parsed.ErrorCount > 0 {
		log.Warn("transcript segments could not be decoded", zap.Int("count", parsed.ErrorCount))
	}

	result := a.extractor.Extract(ctx, parsed.Document)

	if err := writeResult(cmd.OutOrStdout(), f.output, result); err != nil {
		return err
	}
	if f.summary {
		printSummary(cmd.ErrOrStderr(), result)
	}
	return nil
}

func writeResult(stdout io.Writer, path string, result *task.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Wrote %d action items to %s\n", result.TotalItems, path)
	return nil
}

func printSummary(w io.Writer, result *task.Result) {
	s := task.Summarize(result.ActionItems)

	fmt.Fprintf(w, "%d action items (%s)\n", s.Total, result.ExtractionMethod)
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "  priority: high=%d medium=%d low=%d\n",
		s.ByPriority[task.PriorityHigh], s.ByPriority[task.PriorityMedium], s.ByPriority[task.PriorityLow])
	fmt.Fprintf(w, "  with due date: %d, clarified: %d\n\n", s.WithDue, s.Clarified)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSIGNEE\tTASKS")
	for _, name := range s.Assignees() {
		fmt.Fprintf(tw, "%s\t%d\n", name, s.ByAssignee[name])
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	for i, t := range result.ActionItems {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format(task.DateLayout)
		}
		fmt.Fprintf(w, "%2d. [%s/%s] %s (%s, due %s)\n",
			i+1, t.Priority, t.Urgency, strings.TrimSpace(t.Description), t.Assignee, due)
	}
}
