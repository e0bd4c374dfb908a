package cli

import (
	"fmt"
	"time"

	"backend-journeylog/internal/journey"

	"github.com/spf13/cobra"
)

func meteoCmd(opts *options) *cobra.Command {
	var lat, lon float64
	var date string
	var refresh string

	cmd := &cobra.Command{
		Use:   "meteo",
		Short: "Show the forecast for a point, or refresh a journey's weather",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}

			if refresh != "" {
				j, err := c.RefreshMeteo(cmd.Context(), refresh)
				if err != nil {
					return err
				}
				return printMeteo(cmd.OutOrStdout(), j.Meteo, opts.output)
			}

			at := journey.GeoPoint{Latitude: lat, Longitude: lon}
			if at.IsZero() {
				return fmt.Errorf("--lat and --lon are required")
			}
			day := now().UTC()
			if date != "" {
				day, err = time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD")
				}
			}
			m, err := c.Meteo(cmd.Context(), at, day)
			if err != nil {
				return err
			}
			return printMeteo(cmd.OutOrStdout(), m, opts.output)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	cmd.Flags().StringVar(&date, "date", "", "Day, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&refresh, "refresh", "", "Journey id whose weather should be refreshed")
	return cmd
}
