package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/fleet/internal/client"
	"github.com/alfredjeanlab/fleet/internal/export"
)

var exportCmd = &cobra.Command{
	Use:     "export <listing>",
	Short:   "Export every matching row as xlsx or csv",
	GroupID: "listings",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		accounts, _ := cmd.Flags().GetStringSlice("account")
		pairs, _ := cmd.Flags().GetStringArray("filter")
		filters, err := parseFilters(accounts, pairs)
		if err != nil {
			return err
		}
		req := &client.ExportRequest{Filters: filters}
		req.Format, _ = cmd.Flags().GetString("format")
		req.Sort, _ = cmd.Flags().GetString("sort")
		specs, _ := cmd.Flags().GetStringSlice("columns")
		req.Columns = parseColumns(specs)
		req.Upload, _ = cmd.Flags().GetBool("upload")
		output, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()

		if req.Upload {
			res, err := fleetClient.Export(context.Background(), name, req, nil)
			if err != nil {
				return fmt.Errorf("exporting %s: %w", name, err)
			}
			if jsonOutput {
				return printJSON(out, res.Upload)
			}
			fmt.Fprintf(out, "uploaded %d rows to s3://%s/%s\n", res.Rows, res.Upload.Bucket, res.Upload.Key)
			return nil
		}

		if output == "" {
			output = name + "." + extFor(req.Format)
		}
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		res, err := fleetClient.Export(context.Background(), name, req, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(output)
			return fmt.Errorf("exporting %s: %w", name, err)
		}
		fmt.Fprintf(out, "wrote %d rows to %s\n", res.Rows, output)
		return nil
	},
}

// parseColumns reads "field" or "field=Header Label" column flags.
func parseColumns(specs []string) []export.Column {
	var cols []export.Column
	for _, spec := range specs {
		field, label, _ := strings.Cut(spec, "=")
		cols = append(cols, export.Column{Field: strings.TrimSpace(field), Label: strings.TrimSpace(label)})
	}
	return cols
}

func extFor(format string) string {
	if format == "csv" {
		return "csv"
	}
	return "xlsx"
}

func init() {
	addFilterFlags(exportCmd)
	exportCmd.Flags().String("format", "xlsx", "file format (xlsx or csv)")
	exportCmd.Flags().StringSlice("columns", nil, "columns to export as field or field=Label (default: every field)")
	exportCmd.Flags().Bool("upload", false, "store the file in the export bucket")
	exportCmd.Flags().StringP("output", "o", "", "output file (default <listing>.<format>)")
}
