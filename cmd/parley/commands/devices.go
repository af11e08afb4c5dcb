package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/parley/pkg/audio/portaudio"
	"github.com/haivivi/parley/pkg/cli"
)

var devicesFormat string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	Long: `List PortAudio devices. Use the index or exact name as input_device or
output_device in realtime.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize audio: %w", err)
		}
		devices, err := portaudio.Devices()
		if err != nil {
			return err
		}
		if devicesFormat != "" {
			f, err := cli.ParseFormat(devicesFormat)
			if err != nil {
				return err
			}
			return cli.Output(cmd.OutOrStdout(), f, devices)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tDEFAULT\tIN\tOUT\tRATE\tNAME")
		for _, d := range devices {
			def := ""
			switch {
			case d.IsDefaultInput && d.IsDefaultOutput:
				def = "in,out"
			case d.IsDefaultInput:
				def = "in"
			case d.IsDefaultOutput:
				def = "out"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.0f\t%s\n",
				d.Index, def, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, d.Name)
		}
		return w.Flush()
	},
}

func init() {
	devicesCmd.Flags().StringVar(&devicesFormat, "format", "", "output format (yaml, json)")
	rootCmd.AddCommand(devicesCmd)
}
