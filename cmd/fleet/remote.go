package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/fleet/internal/ui"
)

// RemotesConfig holds the named servers the CLI can talk to.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is one fleet server profile.
type Remote struct {
	URL         string `toml:"url"`
	Token       string `toml:"token,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

// remotesPath is ~/.local/state/fleet/remotes.toml; the directory is created
// on demand.
func remotesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "fleet")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotes() (RemotesConfig, error) {
	cfg := RemotesConfig{Remotes: map[string]Remote{}}
	path, err := remotesPath()
	if err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotes(cfg RemotesConfig) error {
	path, err := remotesPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// activeRemote is read once per process for flag defaults.
var activeRemote = sync.OnceValue(func() Remote {
	cfg, err := loadRemotes()
	if err != nil || cfg.Active == "" {
		return Remote{}
	}
	return cfg.Remotes[cfg.Active]
})

func activeRemoteURL() string     { return activeRemote().URL }
func activeRemoteToken() string   { return activeRemote().Token }
func activeRemoteNATSURL() string { return activeRemote().NATSURL }

// maskToken keeps the first 8 characters of a token.
func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + strings.Repeat("*", len(token)-8)
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named fleet servers",
	GroupID: "system",
	// Remote subcommands only touch the local file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		r := Remote{URL: args[1]}
		r.Token, _ = cmd.Flags().GetString("token")
		r.NATSURL, _ = cmd.Flags().GetString("nats")
		r.Description, _ = cmd.Flags().GetString("description")
		cfg.Remotes[args[0]] = r
		if err := saveRemotes(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q saved (%s)\n", args[0], r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		if _, ok := cfg.Remotes[args[0]]; !ok {
			return fmt.Errorf("remote %q not found", args[0])
		}
		delete(cfg.Remotes, args[0])
		if cfg.Active == args[0] {
			cfg.Active = ""
		}
		if err := saveRemotes(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remotes; the active one is starred",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		if len(cfg.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured")
			return nil
		}
		names := make([]string, 0, len(cfg.Remotes))
		for name := range cfg.Remotes {
			names = append(names, name)
		}
		slices.Sort(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			r := cfg.Remotes[name]
			marker := " "
			if name == cfg.Active {
				marker = "*"
			}
			token := r.Token
			if len(token) > 8 {
				token = token[:8] + "..."
			}
			rows = append(rows, []string{marker, name, r.URL, token, r.Description})
		}
		return ui.Table(cmd.OutOrStdout(), []string{"", "name", "url", "token", "description"}, rows, nil)
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active remote (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		cfg.Active = ""
		if len(args) == 1 {
			if _, ok := cfg.Remotes[args[0]]; !ok {
				return fmt.Errorf("remote %q not found", args[0])
			}
			cfg.Active = args[0]
		}
		if err := saveRemotes(cfg); err != nil {
			return err
		}
		if cfg.Active == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "active remote cleared")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", cfg.Active)
		}
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a remote (defaults to the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotes()
		if err != nil {
			return err
		}
		name := cfg.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote; specify a name or run 'fleet remote use <name>'")
		}
		r, ok := cfg.Remotes[name]
		if !ok {
			return fmt.Errorf("remote %q not found", name)
		}

		out := cmd.OutOrStdout()
		if name == cfg.Active {
			name += " (active)"
		}
		fmt.Fprintf(out, "name:         %s\n", name)
		if r.Description != "" {
			fmt.Fprintf(out, "description:  %s\n", r.Description)
		}
		fmt.Fprintf(out, "url:          %s\n", r.URL)
		if r.Token != "" {
			fmt.Fprintf(out, "token:        %s\n", maskToken(r.Token))
		}
		if r.NATSURL != "" {
			fmt.Fprintf(out, "nats_url:     %s\n", r.NATSURL)
		}
		return nil
	},
}

func init() {
	remoteAddCmd.Flags().String("token", "", "bearer token")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for watch")
	remoteAddCmd.Flags().String("description", "", "description of the remote")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd, remoteShowCmd)
}
