package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"designforge/internal/app"
	"designforge/internal/config"
	"designforge/internal/export"
	"designforge/internal/logging"
	"designforge/internal/pipeline"
	"designforge/internal/types"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "designctl",
		Short:         "Generate and browse product design packets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")

	with := func(cmd *cobra.Command, fn func(ctx context.Context, c *app.Components) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := logging.LevelError
		if verbose {
			level = logging.LevelDebug
		}
		logger := logging.NewWriter(cmd.ErrOrStderr(), level, logging.FormatText)
		c, err := app.Build(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(cmd.Context(), c)
	}

	root.AddCommand(
		generateCmd(with),
		recentCmd(with),
		showCmd(with),
		exportCmd(with),
	)
	return root
}

type runner func(cmd *cobra.Command, fn func(ctx context.Context, c *app.Components) error) error

func generateCmd(with runner) *cobra.Command {
	var (
		productType string
		out         string
	)
	cmd := &cobra.Command{
		Use:   "generate [description...]",
		Short: "Run the pipeline for a product description and save the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := types.ParseProductType(productType)
			if err != nil {
				return err
			}
			description := strings.Join(args, " ")
			return with(cmd, func(ctx context.Context, c *app.Components) error {
				progress := func(s pipeline.Stage) {
					fmt.Fprintf(cmd.ErrOrStderr(), "-> %s\n", s)
				}
				rec, err := c.Designs.Generate(ctx, description, pt, progress)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = export.Filename(rec.Packet)
				}
				if err := writeExport(path, rec.Packet); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved design %s (%s), export written to %s\n", rec.ID, rec.ProductName, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&productType, "type", "t", string(types.ProductPhysical), "product type (physical, robotic, mechanical, digital)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "export path (default: <product-name>.html)")
	return cmd
}

func recentCmd(with runner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently generated designs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, c *app.Components) error {
				recs, err := c.Designs.Recent(ctx, limit)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Date", "Name", "Type"})
				for _, r := range recs {
					tw.AppendRow(table.Row{r.ID, r.Date, r.ProductName, r.ProductType})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of designs")
	return cmd
}

func showCmd(with runner) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved design packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			return with(cmd, func(ctx context.Context, c *app.Components) error {
				rec, err := c.Designs.Record(ctx, args[0])
				if err != nil {
					return fmt.Errorf("design %s: %w", args[0], err)
				}
				if format == "yaml" {
					return printYAML(cmd.OutOrStdout(), rec.Packet)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec.Packet)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json or yaml)")
	return cmd
}

func exportCmd(with runner) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the HTML export of a saved design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, c *app.Components) error {
				rec, err := c.Designs.Record(ctx, args[0])
				if err != nil {
					return fmt.Errorf("design %s: %w", args[0], err)
				}
				path := out
				if path == "" {
					path = export.Filename(rec.Packet)
				}
				if err := writeExport(path, rec.Packet); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "export path (default: <product-name>.html)")
	return cmd
}

func writeExport(path string, packet *types.DesignPacket) error {
	page, err := export.HTML(packet)
	if err != nil {
		return err
	}
	return os.WriteFile(path, page, 0o644)
}

// printYAML goes through JSON first so keys keep their camelCase wire names.
func printYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
