package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/parley/pkg/cli"
)

var toolsFormat string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools advertised to the model",
	Long: `List the built-in tools and the HTTP tools declared in tools_file.

With --format the catalog is printed exactly as it is sent in session.update.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRealtime()
		if err != nil {
			return err
		}
		registry, quiet, err := buildRegistry(rt)
		if err != nil {
			return err
		}
		catalog := registry.Catalog()
		if toolsFormat != "" {
			f, err := cli.ParseFormat(toolsFormat)
			if err != nil {
				return err
			}
			return cli.Output(cmd.OutOrStdout(), f, catalog)
		}

		quietSet := make(map[string]bool, len(quiet))
		for _, name := range quiet {
			quietSet[name] = true
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tQUIET\tDESCRIPTION")
		for _, t := range catalog {
			q := ""
			if quietSet[t.Name] {
				q = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, q, t.Description)
		}
		return w.Flush()
	},
}

func init() {
	toolsCmd.Flags().StringVar(&toolsFormat, "format", "", "output format (yaml, json)")
	rootCmd.AddCommand(toolsCmd)
}
