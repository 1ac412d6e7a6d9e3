package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"permitnorm/internal/runner"
	"permitnorm/internal/sheet"
)

var (
	normalizeAHJ  string
	normalizeKeep string
	normalizeOut  string
	normalizeCSV  bool
	normalizeAll  bool

	batchRoot string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize --ahj NAME <file|folder>...",
	Short: "Normalize the exports of one AHJ",
	Long: `Merge the given export files (or every .xlsx/.csv in a folder) and write
the normalized table to OUTPUT_DIR/<AHJ>/OUTPUT_FILE.

Examples:
  permitnorm normalize --ahj Springfield raw/Springfield
  permitnorm normalize --ahj Springfield jan.xlsx feb.xlsx
  permitnorm normalize --ahj Springfield --keep permit_type=solar,pv export.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNormalize,
}

var batchCmd = &cobra.Command{
	Use:   "batch [AHJ...]",
	Short: "Normalize every AHJ folder under RAW_DIR",
	Long: `Each sub-folder of the raw directory holds the exports of one AHJ; the folder
name is the AHJ. Folders are processed concurrently (BATCH_WORKERS).

Examples:
  permitnorm batch
  permitnorm batch Springfield Shelbyville
  permitnorm batch --root /data/exports`,
	RunE: runBatch,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeAHJ, "ahj", "", "authority having jurisdiction (defaults to the folder name)")
	normalizeCmd.Flags().StringVar(&normalizeKeep, "keep", "", "keep only rows where column=value[,value]")
	normalizeCmd.Flags().StringVarP(&normalizeOut, "out", "o", "", "output path (.xlsx or .csv)")
	normalizeCmd.Flags().BoolVar(&normalizeCSV, "csv", false, "write CSV instead of xlsx")
	normalizeCmd.Flags().BoolVar(&normalizeAll, "all-formats", false, "also pick up .html/.xls exports when scanning a folder")

	batchCmd.Flags().StringVar(&batchRoot, "root", "", "folder of AHJ sub-folders (defaults to RAW_DIR)")
	batchCmd.Flags().BoolVar(&normalizeAll, "all-formats", false, "also pick up .html/.xls exports")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func extensions() []string {
	if normalizeAll {
		return sheet.AllExtensions
	}
	return nil
}

func runNormalize(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := runner.Options{AHJ: normalizeAHJ, Output: normalizeOut, Extensions: extensions()}
	if normalizeKeep != "" {
		f, err := runner.ParseFilter(normalizeKeep)
		if err != nil {
			return err
		}
		opts.Filter = &f
	}

	ctx, cancel := signalContext()
	defer cancel()
	svc := runner.New(a.cfg, a.db, a.vocab, a.logger)

	var res runner.Result
	if info, statErr := os.Stat(args[0]); len(args) == 1 && statErr == nil && info.IsDir() {
		if opts.AHJ == "" {
			opts.AHJ = filepath.Base(filepath.Clean(args[0]))
		}
		opts.Output = outputPath(a.cfg.OutputPath(opts.AHJ))
		res, err = svc.RunFolder(ctx, args[0], opts)
	} else {
		if strings.TrimSpace(opts.AHJ) == "" {
			return fmt.Errorf("--ahj is required when normalizing files")
		}
		opts.Output = outputPath(a.cfg.OutputPath(opts.AHJ))
		res, err = svc.RunFiles(ctx, args, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %s rows in=%d out=%d pivoted=%t duplicates_removed=%d\n",
		res.Run.ID, res.Run.AHJ, res.Run.RowsIn, res.Run.RowsOut, res.Run.Pivoted, res.Run.DuplicatesRemoved)
	if res.Removed > 0 {
		fmt.Fprintf(out, "filter removed %d rows\n", res.Removed)
	}
	if review := res.Report.Unmapped(); len(review) > 0 {
		rows := make([][]string, 0, len(review))
		for _, v := range review {
			rows = append(rows, []string{string(v.Domain), v.Value, strconv.Itoa(v.Count)})
		}
		fmt.Fprintln(out, "unmapped values:")
		renderTable(out, []string{"domain", "value", "count"}, rows)
	}
	fmt.Fprintf(out, "written to %s\n", res.Run.OutputPath)
	return nil
}

// outputPath honors --out, then --csv, then the configured default.
func outputPath(configured string) string {
	if normalizeOut != "" {
		return normalizeOut
	}
	if normalizeCSV {
		return strings.TrimSuffix(configured, filepath.Ext(configured)) + ".csv"
	}
	return configured
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	root := batchRoot
	if root == "" {
		root = a.cfg.RawDir
	}
	ctx, cancel := signalContext()
	defer cancel()

	results, err := runner.New(a.cfg, a.db, a.vocab, a.logger).RunBatch(ctx, root, args, runner.Options{Extensions: extensions()})
	if err != nil {
		return err
	}

	failed := 0
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, detail := r.Result.Run.Status, r.Result.Run.OutputPath
		if r.Err != nil {
			failed++
			status, detail = "failed", r.Err.Error()
		}
		rows = append(rows, []string{r.AHJ, status, strconv.Itoa(r.Result.Run.RowsOut), detail})
	}
	renderTable(cmd.OutOrStdout(), []string{"ahj", "status", "rows", "output / error"}, rows)
	if failed > 0 {
		return fmt.Errorf("%d of %d AHJs failed", failed, len(results))
	}
	return nil
}
