package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/flowsim/datarecording"
	"github.com/sarchlab/flowsim/experiment"
	"github.com/spf13/cobra"
)

// reportCmd prints the summary recorded in an SQLite file
var reportCmd = &cobra.Command{
	Use:   "report <file.sqlite3>",
	Short: "Print the summary recorded by a previous run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func report(filename string, out io.Writer) error {
	if _, err := os.Stat(filename); err != nil {
		return fmt.Errorf("opening %s: %w", filename, err)
	}

	reader := datarecording.NewReader(filename)
	defer reader.Close()

	aggregates, err := experiment.ReadSummary(reader)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	return printSummary(out, filename, aggregates)
}

// printSummary writes one row per statistic with its confidence interval.
func printSummary(out io.Writer, title string, aggregates []experiment.Aggregate) error {
	fmt.Fprintln(out, title)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "STATISTIC\tKIND\tN\tMEAN\t±%.0f%%\tMIN\tMAX\n",
		experiment.Confidence*100)

	for _, a := range aggregates {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			a.Name, a.Kind, a.N,
			number(a.Mean), number(a.HalfWidth),
			number(a.Min), number(a.Max))
	}

	return w.Flush()
}

func number(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}

	return fmt.Sprintf("%.4f", v)
}
