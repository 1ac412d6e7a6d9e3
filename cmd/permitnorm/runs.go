package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	runsAHJ   string
	runsLimit int
	reviewAHJ string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded normalization runs",
	RunE:  runRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the notices of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List unmapped categorical values waiting for a vocabulary entry",
	Long: `List the values the latest successful run of each AHJ could not map. Add
them to a vocabulary extension file (VOCAB_PATH) and rerun the AHJ.`,
	RunE: runReview,
}

func init() {
	runsCmd.Flags().StringVar(&runsAHJ, "ahj", "", "only runs of this AHJ")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	runsCmd.AddCommand(runsShowCmd)

	reviewCmd.Flags().StringVar(&reviewAHJ, "ahj", "", "only values of this AHJ")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.db.ListRuns(runsAHJ, runsLimit)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID, r.StartedAt, r.AHJ, r.Mode, r.Status,
			strconv.Itoa(r.RowsIn), strconv.Itoa(r.RowsOut), strconv.FormatBool(r.Pivoted), r.Error,
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"id", "started", "ahj", "mode", "status", "rows in", "rows out", "pivoted", "error"}, rows)
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.db.GetRun(args[0])
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", args[0])
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%s) %s\ninputs: %s\noutput: %s\nvocabulary: %s\n",
		run.ID, run.AHJ, run.Mode, run.Status, run.InputsJSON, run.OutputPath, run.VocabVersion)
	if run.Error != "" {
		fmt.Fprintf(out, "error: %s\n", run.Error)
	}

	notices, err := a.db.ListNotices(run.ID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(notices))
	for _, n := range notices {
		rows = append(rows, []string{n.Level, n.Stage, n.Message})
	}
	renderTable(out, []string{"level", "stage", "message"}, rows)
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	values, err := a.db.ListReviewValues(reviewAHJ)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to review")
		return nil
	}
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v.AHJ, v.Domain, v.Value, strconv.Itoa(v.Count)})
	}
	renderTable(cmd.OutOrStdout(), []string{"ahj", "domain", "value", "count"}, rows)
	return nil
}
