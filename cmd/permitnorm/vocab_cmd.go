package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"permitnorm/internal/vocab"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab [domain]",
	Short: "Show the category vocabularies in use",
	Long: `Print the lookup tables (embedded defaults plus VOCAB_PATH) and any
extension entries that were refused because they would re-point a
canonical value.

Domains: project_type, permit_status, inspection_status`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVocab,
}

func runVocab(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	domains := vocab.Domains
	if len(args) == 1 {
		d := vocab.Domain(args[0])
		if a.vocab.Get(d) == nil {
			return fmt.Errorf("unknown domain %q", args[0])
		}
		domains = []vocab.Domain{d}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "vocabulary version %s\n", a.vocab.Version)
	var rows [][]string
	for _, d := range domains {
		for _, e := range a.vocab.Get(d).Entries() {
			rows = append(rows, []string{string(d), e[0], fmt.Sprintf("%q", e[1])})
		}
	}
	renderTable(out, []string{"domain", "key", "canonical"}, rows)

	if len(a.vocab.Conflicts) > 0 {
		fmt.Fprintln(out, "refused entries:")
		for _, c := range a.vocab.Conflicts {
			fmt.Fprintln(out, "  "+c.String())
		}
	}
	return nil
}
