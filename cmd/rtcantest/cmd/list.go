package cmd

import (
	"fmt"

	"github.com/roffe/rtcan"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List CAN interfaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		devs := rtcan.FindDevices()
		if len(devs) == 0 {
			return fmt.Errorf("no CAN interfaces found")
		}
		for _, dev := range devs {
			fmt.Fprintln(cmd.OutOrStdout(), dev)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
