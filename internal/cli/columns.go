package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"coordconv/internal/config"
	"coordconv/internal/table"
)

func newColumnsCmd(cfg config.Config) *cobra.Command {
	encoding := cfg.Encoding
	cmd := &cobra.Command{
		Use:   "columns FILE",
		Short: "列出表头，并给出猜测的经纬度列",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table.Peek(args[0], 0, table.Options{Encoding: encoding})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, h := range t.Header {
				fmt.Fprintf(out, "%d\t%s\n", i, h)
			}
			lng, lat := table.GuessColumns(t.Header)
			fmt.Fprintf(out, "猜测经度列: %s\n猜测纬度列: %s\n", orDash(lng), orDash(lat))
			return nil
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", encoding, "CSV 编码")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
