package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/satconsole/internal/fleet"
	"github.com/star/satconsole/internal/passes"
	"github.com/star/satconsole/internal/propagation"
	"github.com/star/satconsole/internal/tle"
)

func newFleetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Print the fleet with sub-satellite points",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, v.GetString("log-level"))

			at := time.Now().UTC()
			if s := v.GetString("at"); s != "" {
				at, err = time.Parse(time.RFC3339, s)
				if err != nil {
					return fmt.Errorf("invalid --at time %q: %w", s, err)
				}
			}

			set, err := tle.LoadFleet(logger)
			if err != nil {
				return err
			}
			store := tle.NewStore()
			store.Set(set)
			prop := propagation.NewPropagator(store, propagation.PropConfig{Workers: 1}, logger)
			predictor := passes.NewPredictor(prop, loadPassConfig(v, logger), logger)
			svc := fleet.NewService(prop, logger,
				fleet.WithClock(func() time.Time { return at }),
				fleet.WithPasses(predictor),
			)

			return printFleet(cmd.OutOrStdout(), svc.List(cmd.Context()), at, predictor.Station())
		},
	}
	cmd.Flags().String("at", "", "RFC 3339 time to propagate to (default: now)")
	registerStationFlags(cmd.Flags())
	return cmd
}

func printFleet(out io.Writer, sats []fleet.Satellite, at time.Time, st propagation.Station) error {
	fmt.Fprintf(out, "Fleet at %s, passes over %s (%.2f, %.2f)\n",
		at.UTC().Format(time.RFC3339), st.Name, st.LatitudeDeg, st.LongitudeDeg)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSIGNAL\tLAT\tLON\tALT KM\tKM/S\tNEXT PASS\tMAX EL")
	for _, s := range sats {
		maxEl := "-"
		if s.Pass != nil {
			maxEl = fmt.Sprintf("%.0f", s.Pass.MaxElevationDeg)
		}
		if s.Position == nil {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t-\t-\t-\t-\t%s\t%s\n", s.ID, s.Name, s.Status, s.Signal, s.NextPass, maxEl)
			continue
		}
		p := s.Position
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%.2f\t%.2f\t%.0f\t%.2f\t%s\t%s\n",
			s.ID, s.Name, s.Status, s.Signal, p.Latitude, p.Longitude, p.AltitudeKm, p.SpeedKmS, s.NextPass, maxEl)
	}
	return tw.Flush()
}
