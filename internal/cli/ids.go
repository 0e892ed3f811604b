package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/enumerator"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

var idsChannel string

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Enumerate the channel's videos into the video list",
	Long: `Enumerate the videos of a YouTube channel and write them to the video list
(one {"id", "source_url"} JSON object per line).

Examples:
  zen ids --channel https://www.youtube.com/@channel/videos
  CHANNEL_URL=https://www.youtube.com/@channel zen ids`,
	RunE: runIDs,
}

func init() {
	rootCmd.AddCommand(idsCmd)
	idsCmd.Flags().StringVar(&idsChannel, "channel", "", "channel URL (default is source.channel_url)")
}

func runIDs(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	url := idsChannel
	if url == "" {
		url = cfg.Source.ChannelURL
	}
	if url == "" {
		return domain.NewConfigError("source.channel_url", "no channel URL configured")
	}
	if err := cfg.EnsureDataDir(GetRootDir()); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	ch := enumerator.NewChannel(newFetcher(cfg), cfg.Source.MaxVideos, cfg.Source.ExcludeShorts)
	refs, err := ch.Enumerate(cmd.Context(), url)
	if err != nil {
		return fmt.Errorf("enumeration failed: %w", err)
	}

	path := cfg.VideoListPath(GetRootDir())
	if err := enumerator.SaveList(path, refs); err != nil {
		return fmt.Errorf("failed to write video list: %w", err)
	}

	fmt.Printf("Found %d videos\n", len(refs))
	fmt.Printf("Video list written to: %s\n", path)
	return nil
}
