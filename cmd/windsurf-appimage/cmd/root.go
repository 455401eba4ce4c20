package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/windsurf-appimage/internal/ci"
	"github.com/oshokin/windsurf-appimage/internal/logger"
	"github.com/oshokin/windsurf-appimage/internal/service/packager"
	"github.com/oshokin/windsurf-appimage/internal/version"
)

// errUnknownLogLevel is returned for --log-level values zap does not know.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the YAML or TOML configuration file.
	configPath string
	// logLevel is parsed by logger.ParseLogLevel.
	logLevel string
	// workDir is where git runs and the AppDir is built.
	workDir string
	// distDir receives the finished AppImage.
	distDir string
	// searchRoot is walked for the produced AppImage.
	searchRoot string
	// githubEnv is the runner's env file.
	githubEnv string
	// repository is owner/name of the repository publishing releases.
	repository string

	// rootCmd represents the base command for packaging the latest release.
	rootCmd = &cobra.Command{
		Use:   "windsurf-appimage",
		Short: "Package the latest Windsurf release as an AppImage.",
		Long: `Checks the Windsurf update endpoint and, when the most recent git tag of the
working directory differs from the upstream version, downloads the release,
patches its product.json and builds an AppImage into the dist directory.

When running on GitHub Actions, APP_UPDATE_NEEDED and VERSION are appended
to $GITHUB_ENV and the image embeds update information for $GITHUB_REPOSITORY.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath: configPath,
				WorkDir:    workDir,
				DistDir:    distDir,
				SearchRoot: searchRoot,
				GitHubEnv:  githubEnv,
				Repository: repository,
				Out:        cmd.OutOrStdout(),
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the windsurf-appimage CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

// applyLogLevel switches the global logger to the --log-level value.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%q: %w", logLevel, errUnknownLogLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML or TOML configuration file")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error")

	rootCmd.Flags().StringVarP(&workDir, "workdir", "w", "", "working directory, the current one by default")
	rootCmd.Flags().StringVarP(&distDir, "dist", "d", "", "output directory, overrides the configuration")
	rootCmd.Flags().StringVar(&searchRoot, "search-root", "", "directory searched for the built AppImage")
	rootCmd.Flags().StringVar(&githubEnv, "github-env", os.Getenv(ci.EnvGitHubEnv), "file receiving exported variables")
	rootCmd.Flags().
		StringVar(&repository, "repository", os.Getenv(ci.EnvGitHubRepository), "owner/name used for update information")
}
