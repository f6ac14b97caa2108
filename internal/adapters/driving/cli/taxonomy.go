package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Keyword taxonomy commands",
}

var taxonomyCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a taxonomy file and list its groups",
	Long: `Parses a taxonomy file and prints each keyword group with its variants.

Supported formats:
  .csv        one group per row: id, then its keywords (',' or ';' delimited,
              optional "group,keywords" header)
  .xlsx       the first sheet, laid out like the CSV
  .txt, .md   "Group | kw1, kw2" lines; bare lines go to group "0"`,
	Args: cobra.ExactArgs(1),
	RunE: runTaxonomyCheck,
}

func init() {
	taxonomyCheckCmd.Flags().Bool("json", false, "print the groups as JSON")
	taxonomyCmd.AddCommand(taxonomyCheckCmd)
	rootCmd.AddCommand(taxonomyCmd)
}

type groupJSON struct {
	ID       string   `json:"id"`
	Variants []string `json:"variants"`
}

func runTaxonomyCheck(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	tax, err := taxonomy.New().LoadFile(osFS, args[0])
	if err != nil {
		return err
	}
	groups := tax.Groups()

	if asJSON {
		out := make([]groupJSON, len(groups))
		for i, g := range groups {
			out[i] = groupJSON{ID: g.ID, Variants: g.Variants}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	variants := 0
	for _, g := range groups {
		variants += len(g.Variants)
		cmd.Printf("%s: %s\n", g.ID, strings.Join(g.Variants, ", "))
	}
	cmd.Printf("\n%d group(s), %d variant(s). Taxonomy is valid.\n", len(groups), variants)
	return nil
}
