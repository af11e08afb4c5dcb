package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/parley/cmd/parley/internal/build"
	"github.com/haivivi/parley/pkg/cli"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionFormat != "" {
			f, err := cli.ParseFormat(versionFormat)
			if err != nil {
				return err
			}
			return cli.Output(out, f, build.Get())
		}
		fmt.Fprintln(out, build.String())
		if IsVerbose() {
			fmt.Fprintf(out, "  go:     %s\n", build.Get().Go)
			if cfg, err := GetConfig(); err == nil {
				fmt.Fprintf(out, "  config: %s\n", cfg.Dir)
			} else {
				fmt.Fprintf(out, "  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "", "output format (yaml, json)")
	rootCmd.AddCommand(versionCmd)
}
