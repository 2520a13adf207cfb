package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/regioniq/catchment/internal/model"
)

var (
	calcLat      float64
	calcLng      float64
	calcRadiusKm float64
	calcPolygon  string
	calcLevel    string
	calcYear     int
	calcScenario string
	calcJSON     bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run a one-shot catchment calculation",
	Long:  "Intersects a circle (--lat/--lng/--radius-km) or polygon (--polygon) against the configured boundaries and prints area-weighted totals.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level, err := model.ParseLevel(calcLevel)
		if err != nil {
			return err
		}
		scenario, err := model.ParseScenario(calcScenario)
		if err != nil {
			return err
		}

		var fence model.Geofence
		if calcPolygon != "" {
			ring, err := parseRing(calcPolygon)
			if err != nil {
				return err
			}
			fence = model.NewPolygon(ring)
		} else {
			fence = model.NewCircle(model.Coordinate{Lng: calcLng, Lat: calcLat}, calcRadiusKm)
		}
		if err := fence.Validate(); err != nil {
			return err
		}

		env, err := initEnv(ctx, "calc")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Engine.Calculate(ctx, fence, level, calcYear, scenario)
		if err != nil {
			return err
		}

		if calcJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		p := message.NewPrinter(language.BritishEnglish)
		p.Printf("Catchment at %s level, %d (%s)\n", result.Level, result.Year, result.Scenario)
		p.Printf("  Population: %.0f\n", result.TotalPopulation)
		p.Printf("  Employment: %.0f\n", result.TotalEmployment)
		p.Printf("  GDHI:       £%.0fk\n", result.TotalGDHI)
		p.Printf("  Areas: %d", result.AreaCount)
		if result.SkippedAreas > 0 {
			p.Printf(" (%d skipped for malformed geometry)", result.SkippedAreas)
		}
		p.Printf("\n\n")
		for _, c := range result.Contributions {
			p.Printf("  %-10s %-28s %5.1f%%  pop %.0f\n", c.Code, c.Name, c.Weight*100, c.Population)
		}

		return nil
	},
}

// parseRing parses "lng,lat;lng,lat;..." into a polygon ring.
func parseRing(s string) ([]model.Coordinate, error) {
	var ring []model.Coordinate
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, eris.Errorf("invalid coordinate %q, want lng,lat", pair)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid longitude %q", parts[0])
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid latitude %q", parts[1])
		}
		ring = append(ring, model.Coordinate{Lng: lng, Lat: lat})
	}
	return ring, nil
}

func init() {
	calcCmd.Flags().Float64Var(&calcLat, "lat", 0, "circle centre latitude")
	calcCmd.Flags().Float64Var(&calcLng, "lng", 0, "circle centre longitude")
	calcCmd.Flags().Float64Var(&calcRadiusKm, "radius-km", 0, "circle radius in km")
	calcCmd.Flags().StringVar(&calcPolygon, "polygon", "", "polygon ring as lng,lat;lng,lat;... (overrides circle flags)")
	calcCmd.Flags().StringVar(&calcLevel, "level", "LAD", "granularity level (ITL1, ITL2, ITL3, LAD)")
	calcCmd.Flags().IntVar(&calcYear, "year", 2023, "observation year")
	calcCmd.Flags().StringVar(&calcScenario, "scenario", "baseline", "forecast scenario (baseline, upside, downside)")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(calcCmd)
}
