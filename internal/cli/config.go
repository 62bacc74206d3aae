package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/config"
)

func (a *App) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage aivd configuration",
		Long: `Manage aivd configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (AIVD_*, e.g. AIVD_FETCH_BACKEND=page)
3. Config file (~/.aivd/config.yaml)
4. Defaults`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if used := a.v.ConfigFileUsed(); used != "" {
				if _, err := os.Stat(used); err == nil {
					fmt.Fprintf(a.errOut, "Configuration file: %s\n\n", used)
				}
			}

			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}
			_, err = a.out.Write(data)
			return err
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  `Create a configuration file with every option at its default, at --config or ~/.aivd/config.yaml.`,
		// the target file may not exist yet, so skip loading it
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s\nUse 'aivd config show' to view it, or --force to overwrite", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("error creating config directory: %w", err)
			}

			data, err := yaml.Marshal(config.Default())
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}

			header := "# aivd configuration\n" +
				"#\n" +
				"# Configuration hierarchy (highest to lowest priority):\n" +
				"#   1. CLI flags\n" +
				"#   2. Environment variables (AIVD_*)\n" +
				"#   3. This config file\n" +
				"#   4. Built-in defaults\n\n"

			if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
				return fmt.Errorf("error writing config: %w", err)
			}

			fmt.Fprintf(a.out, "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	configCmd.AddCommand(showCmd, initCmd)
	return configCmd
}
