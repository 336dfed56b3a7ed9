package cli

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"coordconv/internal/config"
	"coordconv/internal/transform"
)

func newPointCmd(cfg config.Config) *cobra.Command {
	direction := cfg.Direction
	cmd := &cobra.Command{
		Use:   "point LNG LAT",
		Short: "转换单个坐标，并给出往返误差",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := transform.ParseDirection(direction)
			if err != nil {
				return err
			}
			lng, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("经度 %q: %w", args[0], err)
			}
			lat, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("纬度 %q: %w", args[1], err)
			}
			p := orb.Point{lng, lat}
			q := transform.Convert(dir, p)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", dir.Label())
			fmt.Fprintf(out, "%s,%s\n", strconv.FormatFloat(q[0], 'f', -1, 64), strconv.FormatFloat(q[1], 'f', -1, 64))
			fmt.Fprintf(out, "往返误差: %.3f m\n", transform.Residual(dir, p))
			if transform.OutOfChina(lng, lat) && dir.From() != transform.BD09 && dir.To() != transform.BD09 {
				fmt.Fprintln(out, "坐标在国境范围外，未做偏移")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&direction, "direction", "d", direction, "转换方向")
	return cmd
}
