package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"coordconv/internal/transform"
)

func newDirectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "directions",
		Short: "列出支持的转换方向",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, d := range transform.Directions() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", int(d), d.String(), d.Label())
			}
		},
	}
}
