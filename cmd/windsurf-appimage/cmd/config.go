package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/windsurf-appimage/internal/config"
	"github.com/oshokin/windsurf-appimage/internal/logger"
)

// configCmd writes the effective configuration so it can be edited and passed back with --config.
var configCmd = &cobra.Command{
	Use:   "config [output-file]",
	Short: "Write the effective configuration to a file.",
	Long: `Loads the configuration the packager would use (defaults merged with --config)
and writes it to output-file, windsurf-appimage.yaml by default.
A .toml extension selects TOML, anything else YAML.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		output := config.DefaultConfigFilename
		if len(args) > 0 {
			output = args[0]
		}

		if err = config.Save(output, cfg); err != nil {
			return err
		}

		logger.InfoKV(context.Background(), "Configuration written", "path", output)

		return nil
	},
}
