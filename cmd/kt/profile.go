package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// ProfilesConfig holds all named connection profiles and tracks which one
// is active.
type ProfilesConfig struct {
	Active   string             `toml:"active"`
	Profiles map[string]Profile `toml:"profiles"`
}

// Profile is a named set of connection settings.
type Profile struct {
	DatabaseURL string `toml:"database_url"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

func profileConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "ktasks")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles.toml"), nil
}

func loadProfilesConfig() (ProfilesConfig, error) {
	path, err := profileConfigPath()
	if err != nil {
		return ProfilesConfig{}, err
	}
	var cfg ProfilesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return ProfilesConfig{Profiles: map[string]Profile{}}, nil
		}
		return ProfilesConfig{}, err
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return cfg, nil
}

func saveProfilesConfig(cfg ProfilesConfig) error {
	path, err := profileConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Cached active profile values, loaded once per process.
var (
	profileOnce       sync.Once
	cachedDatabaseURL string
	cachedNATSURL     string
)

func loadActiveProfileOnce() {
	profileOnce.Do(func() {
		cfg, err := loadProfilesConfig()
		if err != nil || cfg.Active == "" {
			return
		}
		p, ok := cfg.Profiles[cfg.Active]
		if !ok {
			return
		}
		cachedDatabaseURL = p.DatabaseURL
		cachedNATSURL = p.NATSURL
	})
}

func activeDatabaseURL() string { loadActiveProfileOnce(); return cachedDatabaseURL }
func activeNATSURL() string     { loadActiveProfileOnce(); return cachedNATSURL }

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage connection profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProfilesConfig()
		if err != nil {
			return err
		}
		if len(cfg.Profiles) == 0 {
			fmt.Println("No profiles configured")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDATABASE\tNATS\tDESCRIPTION")
		for name, p := range cfg.Profiles {
			marker := ""
			if name == cfg.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, p.DatabaseURL, p.NATSURL, p.Description)
		}
		return w.Flush()
	},
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name> <database-url>",
	Short: "Add or update a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		description, _ := cmd.Flags().GetString("description")

		cfg, err := loadProfilesConfig()
		if err != nil {
			return err
		}
		cfg.Profiles[args[0]] = Profile{
			DatabaseURL: args[1],
			NATSURL:     natsURL,
			Description: description,
		}
		if cfg.Active == "" {
			cfg.Active = args[0]
		}
		if err := saveProfilesConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Saved profile %q\n", args[0])
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the active profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProfilesConfig()
		if err != nil {
			return err
		}
		if _, ok := cfg.Profiles[args[0]]; !ok {
			return fmt.Errorf("unknown profile %q", args[0])
		}
		cfg.Active = args[0]
		if err := saveProfilesConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Active profile is now %q\n", args[0])
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProfilesConfig()
		if err != nil {
			return err
		}
		if _, ok := cfg.Profiles[args[0]]; !ok {
			return fmt.Errorf("unknown profile %q", args[0])
		}
		delete(cfg.Profiles, args[0])
		if cfg.Active == args[0] {
			cfg.Active = ""
		}
		if err := saveProfilesConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Removed profile %q\n", args[0])
		return nil
	},
}

func init() {
	profileAddCmd.Flags().String("nats", "", "NATS URL for event publishing")
	profileAddCmd.Flags().String("description", "", "profile description")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileRemoveCmd)
}
