package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"roteiro/config"
)

var (
	statsJSON bool
	statsDocs bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	Long: `Show document and chunk counts, the embedding model and the schema
state of the stored corpus.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	statsCmd.Flags().BoolVar(&statsDocs, "docs", false, "list indexed documents")
}

// StatsOutput is the JSON shape of the stats command.
type StatsOutput struct {
	Documents   int      `json:"documents"`
	Chunks      int      `json:"chunks"`
	AvgChunkLen float64  `json:"avg_chunk_len"`
	Dimension   int      `json:"dimension"`
	Model       string   `json:"model,omitempty"`
	Version     string   `json:"version"`
	DBSize      int64    `json:"db_size"`
	Sources     []string `json:"sources,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	st, err := openCorpusStore(cfg, dir)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	corpus, err := st.LoadCorpus()
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	out := StatsOutput{
		Documents:   stats.TotalDocs,
		Chunks:      stats.TotalChunks,
		AvgChunkLen: stats.AvgChunkLen,
		Dimension:   stats.Dimension,
		Model:       stats.Model,
		Version:     corpus.Version(),
	}
	if info, err := os.Stat(config.CorpusDBPath(dir)); err == nil {
		out.DBSize = info.Size()
	}

	docs, err := st.ListDocs()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if statsDocs {
		for _, doc := range docs {
			out.Sources = append(out.Sources, doc.Source)
		}
		sort.Strings(out.Sources)
	}

	if statsJSON {
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	model := out.Model
	if model == "" {
		model = "none (lexical only)"
	}
	fmt.Printf("Corpus %s\n", out.Version)
	fmt.Printf("  Documents:        %s\n", humanize.Comma(int64(out.Documents)))
	fmt.Printf("  Chunks:           %s\n", humanize.Comma(int64(out.Chunks)))
	fmt.Printf("  Avg chunk length: %.0f characters\n", out.AvgChunkLen)
	fmt.Printf("  Embedding model:  %s\n", model)
	if out.Dimension > 0 {
		fmt.Printf("  Dimension:        %d\n", out.Dimension)
	}
	fmt.Printf("  Database size:    %s\n", humanize.Bytes(uint64(out.DBSize)))

	var newest time.Time
	for _, doc := range docs {
		if doc.ModTime.After(newest) {
			newest = doc.ModTime
		}
	}
	if !newest.IsZero() {
		fmt.Printf("  Newest source:    %s\n", humanize.Time(newest))
	}

	for _, src := range out.Sources {
		fmt.Printf("  - %s\n", src)
	}
	return nil
}
