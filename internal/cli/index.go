package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"roteiro/config"
	"roteiro/internal/adapter/store"
	"roteiro/internal/usecase"
)

var indexQuiet bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build the retrieval corpus",
	Long: `Read the knowledge-base files under the given directory, chunk them,
embed the chunks when embeddings are enabled, and store the corpus in
.roteiro/corpus.db, replacing any previous corpus in one step.

Examples:
  roteiro index                  # Index the current directory
  roteiro index /caminho/da/tese # Index a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "hide progress bars")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

	if err := config.EnsureDir(path); err != nil {
		return fmt.Errorf("failed to create .roteiro directory: %w", err)
	}

	dbPath := config.CorpusDBPath(path)
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open corpus store: %w", err)
	}
	defer st.Close()

	migration, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}
	if migration.NeedsRebuild {
		logger.Info().Str("reason", migration.Reason).Msg("clearing stored corpus before rebuild")
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear corpus: %w", err)
		}
	}

	tokenizer := newTokenizer(cfg)
	embedder, err := newEmbedder(cmd.Context(), cfg, tokenizer)
	if err != nil {
		return err
	}

	indexer, err := newIndexer(cfg, st, tokenizer, embedder)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", knowledgeBaseRoot(cfg, path))

	var progress usecase.ProgressFunc
	if !indexQuiet {
		progress = newStageProgress()
	}

	result, err := indexer.Index(cmd.Context(), knowledgeBaseRoot(cfg, path), progress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	// Record schema version and config hash only once the corpus is in place.
	if err := st.Migrate(cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed:  %d\n", result.FilesIndexed)
	fmt.Printf("  Chunks created: %d\n", result.ChunksCreated)
	if result.Embedded > 0 {
		fmt.Printf("  Embeddings:     %d (%s)\n", result.Embedded, result.Model)
	}
	fmt.Printf("  Version:        %s\n", result.Version)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nCorpus stored at: %s\n", dbPath)
	return nil
}

// newStageProgress draws one progress bar per indexing stage.
func newStageProgress() usecase.ProgressFunc {
	var (
		mu    sync.Mutex
		stage string
		bar   *progressbar.ProgressBar
	)
	labels := map[string]string{
		usecase.StageRead:  "[cyan]Reading[reset]  ",
		usecase.StageChunk: "[cyan]Chunking[reset] ",
		usecase.StageEmbed: "[cyan]Embedding[reset]",
	}

	return func(s string, done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if s != stage || bar == nil {
			stage = s
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(labels[s]),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}
}
