package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the corpus whenever the knowledge base changes",
	Long: `Index the knowledge base, then keep watching it and rebuild the stored
corpus after each burst of changes. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	tokenizer := newTokenizer(cfg)
	embedder, err := newEmbedder(ctx, cfg, tokenizer)
	if err != nil {
		return err
	}

	live, err := openLiveCorpus(ctx, cfg, GetRootDir(), tokenizer, embedder, true)
	if err != nil {
		return err
	}
	defer live.Close()

	return live.watch(ctx)
}
