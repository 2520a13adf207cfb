package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/boundary"
	"github.com/regioniq/catchment/internal/model"
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Boundary dataset tooling",
}

var (
	convertOut       string
	convertCodeField string
	convertNameField string
	convertTolerance float64
)

var boundariesConvertCmd = &cobra.Command{
	Use:   "convert <shapefile>",
	Short: "Convert an ONS shapefile to the GeoJSON the boundary store loads",
	Long:  "Reads a .shp or zipped shapefile, reprojects National Grid coordinates to WGS84, simplifies rings, and writes a GeoJSON feature collection.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := boundary.ConvertShapefile(args[0], boundary.ConvertOptions{
			CodeField:         convertCodeField,
			NameField:         convertNameField,
			SimplifyTolerance: convertTolerance,
		})
		if err != nil {
			return err
		}

		if convertOut == "" || convertOut == "-" {
			_, err := os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(convertOut, data, 0o644); err != nil {
			return eris.Wrap(err, "write geojson")
		}

		zap.L().Info("shapefile converted",
			zap.String("input", args[0]),
			zap.String("output", convertOut),
			zap.Int("bytes", len(data)),
		)
		return nil
	},
}

var boundariesPreloadCmd = &cobra.Command{
	Use:   "preload [level...]",
	Short: "Fetch and parse boundaries for the given levels",
	Long:  "Loads each level from the configured source and reports feature counts. With no arguments, loads the configured preload levels.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "calc")
		if err != nil {
			return err
		}
		defer env.Close()

		names := args
		if len(names) == 0 {
			names = cfg.Boundaries.PreloadLevels
		}

		for _, raw := range names {
			level, err := model.ParseLevel(raw)
			if err != nil {
				return err
			}
			areas, err := env.Boundaries.Areas(ctx, level)
			if err != nil {
				return err
			}
			zap.L().Info("boundaries loaded",
				zap.String("level", string(level)),
				zap.Int("areas", len(areas)),
			)
		}

		return nil
	},
}

var statusLoad bool

var boundariesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured boundary source for each level",
	Long:  "Prints each level's source location. With --load, fetches and parses every level and reports feature counts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("calc"); err != nil {
			return err
		}

		if statusLoad {
			env, err := initEnv(ctx, "calc")
			if err != nil {
				return err
			}
			defer env.Close()

			for _, level := range model.Levels {
				areas, err := env.Boundaries.Areas(ctx, level)
				if err != nil {
					fmt.Printf("%-6s error: %v\n", level, err)
					continue
				}
				fmt.Printf("%-6s %d areas\n", level, len(areas))
			}
			return nil
		}

		if cfg.Boundaries.Dir != "" {
			for _, level := range model.Levels {
				path := filepath.Join(cfg.Boundaries.Dir, strings.ToLower(string(level))+".geojson")
				if info, err := os.Stat(path); err != nil {
					fmt.Printf("%-6s %s (missing)\n", level, path)
				} else {
					fmt.Printf("%-6s %s (%d bytes)\n", level, path, info.Size())
				}
			}
			return nil
		}

		urls, err := cfg.Boundaries.BoundaryURLs()
		if err != nil {
			return err
		}
		for _, level := range model.Levels {
			url, ok := urls[level]
			if !ok {
				fmt.Printf("%-6s (not configured)\n", level)
				continue
			}
			fmt.Printf("%-6s %s\n", level, url)
		}
		return nil
	},
}

func init() {
	boundariesConvertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "output path (default stdout)")
	boundariesConvertCmd.Flags().StringVar(&convertCodeField, "code-field", "", "attribute holding the area code (default: detect *CD)")
	boundariesConvertCmd.Flags().StringVar(&convertNameField, "name-field", "", "attribute holding the area name (default: detect *NM)")
	boundariesConvertCmd.Flags().Float64Var(&convertTolerance, "tolerance", boundary.DefaultSimplifyTolerance, "ring simplification tolerance in degrees (0 disables)")
	boundariesStatusCmd.Flags().BoolVar(&statusLoad, "load", false, "fetch and parse every level")
	boundariesCmd.AddCommand(boundariesConvertCmd)
	boundariesCmd.AddCommand(boundariesPreloadCmd)
	boundariesCmd.AddCommand(boundariesStatusCmd)
	rootCmd.AddCommand(boundariesCmd)
}
