package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/config"
	"github.com/4ngelGtz/chatbot-zen/internal/logger"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "zen",
	Short: "Zen transcript Q&A - ingest a channel's captions and answer questions from them",
	Long: `zen downloads the captions of a YouTube channel, indexes them as vectors
and answers natural-language questions grounded in the transcripts.

Example usage:
  zen ids                          # Enumerate the channel's videos
  zen fetch                        # Download transcripts
  zen chunk && zen index           # Build the corpus and the vector index
  zen ask -q "how do I start?"     # Answer from the transcripts
  zen serve                        # Run the HTTP query API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		return logger.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./zen.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory (default is current directory)")
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	return cfg
}

// GetRootDir returns the project directory.
func GetRootDir() string {
	return rootDir
}
