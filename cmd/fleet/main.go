package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/fleet/internal/client"
	"github.com/alfredjeanlab/fleet/internal/listing"
	"github.com/alfredjeanlab/fleet/internal/ui"
)

var (
	httpURL    string
	authToken  string
	jsonOutput bool
	noColor    bool

	fleetClient client.FleetClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("FLEET_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultToken() string {
	if s := os.Getenv("FLEET_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

var rootCmd = &cobra.Command{
	Use:           "fleet <command>",
	Short:         "Fleet listing service and client",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup(cmd.OutOrStdout(), noColor)
		fleetClient = client.NewHTTPClient(httpURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if fleetClient != nil {
			fleetClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "url", defaultHTTPURL(), "fleet server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "listings", Title: "Listings:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Listings
	rootCmd.AddCommand(newListingCmd(listing.Equipment, "List equipment",
		[]string{"id", "unit_number", "status", "equipment_type", "account_number", "vendor_name"}))
	rootCmd.AddCommand(newListingCmd(listing.PM, "List PM and DOT schedules",
		[]string{"id", "unit_number", "kind", "next_due_at", "due_status", "days_until_due"}))
	rootCmd.AddCommand(newListingCmd(listing.Workorders, "List workorders",
		[]string{"id", "number", "unit_number", "status", "priority", "vendor_name", "priority_range"}))
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
