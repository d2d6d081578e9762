package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/stylecam/internal/style"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List available styles",
	Long: `List the artistic styles this build ships with, including the
parameters each style accepts.`,
	Example: `  # List styles in table format (default)
  stylecam styles

  # List styles in JSON format
  stylecam styles --format json`,
	RunE: runStyles,
}

var stylesFormat string

func init() {
	rootCmd.AddCommand(stylesCmd)

	stylesCmd.Flags().StringVarP(&stylesFormat, "format", "f", "table", "output format (table or json)")
}

func runStyles(cmd *cobra.Command, args []string) error {
	registry := style.DefaultRegistry()

	switch stylesFormat {
	case "json":
		type entry struct {
			Name   string            `json:"name"`
			Params []style.ParamSpec `json:"params"`
		}
		entries := make([]entry, 0)
		for _, name := range registry.Names() {
			st, ok := registry.Get(name)
			if !ok {
				continue
			}
			entries = append(entries, entry{Name: name, Params: st.ParamSpecs()})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "table":
		return printStylesTable(registry)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", stylesFormat)
	}
}

func printStylesTable(registry *style.Registry) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "STYLE\tPARAMETER\tTYPE\tDEFAULT")
	fmt.Fprintln(w, "-----\t---------\t----\t-------")

	for _, name := range registry.Names() {
		st, ok := registry.Get(name)
		if !ok {
			continue
		}
		specs := st.ParamSpecs()
		if len(specs) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\t-\n", name)
			continue
		}
		for i, spec := range specs {
			col := name
			if i > 0 {
				col = ""
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", col, spec.Name, spec.Type, spec.Default)
		}
	}

	return nil
}
