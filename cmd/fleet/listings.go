package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/fleet/internal/client"
	"github.com/alfredjeanlab/fleet/internal/listing"
	"github.com/alfredjeanlab/fleet/internal/query"
)

// newListingCmd builds the command for one listing. With an id argument it
// shows that record; otherwise it lists a page.
func newListingCmd(name, short string, defaultColumns []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     name + " [id]",
		Short:   short,
		GroupID: "listings",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, _ := cmd.Flags().GetStringSlice("columns")
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				rec, err := fleetClient.Get(context.Background(), name, args[0])
				if err != nil {
					return fmt.Errorf("getting %s %s: %w", name, args[0], err)
				}
				if jsonOutput {
					return printJSON(out, rec)
				}
				if len(columns) == 0 {
					columns = sortedKeys(rec)
				}
				printRecord(out, rec, columns)
				return nil
			}

			req, err := listRequestFromFlags(cmd)
			if err != nil {
				return err
			}
			page, err := fleetClient.List(context.Background(), name, req)
			if err != nil {
				return fmt.Errorf("listing %s: %w", name, err)
			}
			if jsonOutput {
				return printJSON(out, page)
			}
			if len(columns) == 0 {
				columns = defaultColumns
			}
			return printPage(out, page, columns)
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("per-page", 25, "rows per page")
	cmd.Flags().StringSlice("columns", nil, "columns to return")
	cmd.Flags().Bool("no-stats", false, "skip statistics")
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("account", "a", nil, "account ids (required by the server)")
	cmd.Flags().StringArrayP("filter", "f", nil, "filter as key=value (repeatable)")
	cmd.Flags().String("sort", "", "sort as key:dir[,key:dir]")
}

func listRequestFromFlags(cmd *cobra.Command) (*client.ListRequest, error) {
	accounts, _ := cmd.Flags().GetStringSlice("account")
	pairs, _ := cmd.Flags().GetStringArray("filter")
	filters, err := parseFilters(accounts, pairs)
	if err != nil {
		return nil, err
	}
	req := &client.ListRequest{Filters: filters}
	req.Sort, _ = cmd.Flags().GetString("sort")
	req.Page, _ = cmd.Flags().GetInt("page")
	req.PerPage, _ = cmd.Flags().GetInt("per-page")
	req.Columns, _ = cmd.Flags().GetStringSlice("columns")
	req.NoStats, _ = cmd.Flags().GetBool("no-stats")
	return req, nil
}

// parseFilters turns --account and key=value pairs into request filters.
// Repeated keys accumulate values.
func parseFilters(accounts, pairs []string) (query.Filters, error) {
	f := query.Filters{}
	if len(accounts) > 0 {
		f.Add(listing.RequiredParam, accounts...)
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", p)
		}
		f.Add(key, value)
	}
	return f, nil
}

func sortedKeys(rec query.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		switch {
		case a == "id":
			return -1
		case b == "id":
			return 1
		}
		return strings.Compare(a, b)
	})
	return keys
}
