package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	contextText      string
	contextPersona   string
	contextEphemeral bool
	contextStrict    bool
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the assembled context for a question",
	Long: `Print only the context string that answer generation receives: the
selected chunks in rank order, separated by blank lines and capped at
retrieve.max_context_length characters.

Examples:
  roteiro context -q "como é feita a dispensação da PQT-U?" | llm -s prompt.txt
  roteiro context -q "clofazimina" --strict   # exit 2 when nothing is relevant`,
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().StringVarP(&contextText, "query", "q", "", "question (required)")
	contextCmd.Flags().StringVarP(&contextPersona, "persona", "p", "", "answer persona, part of the cache key")
	contextCmd.Flags().BoolVar(&contextEphemeral, "ephemeral", false, "build the corpus in memory instead of reading .roteiro/corpus.db")
	contextCmd.Flags().BoolVar(&contextStrict, "strict", false, "exit with status 2 when no chunk is relevant")
	bindRetrieveFlags(contextCmd.Flags())
	contextCmd.MarkFlagRequired("query")
}

func runContext(cmd *cobra.Command, args []string) error {
	result, _, err := retrieveOnce(cmd, contextText, contextPersona, contextEphemeral)
	if err != nil {
		return err
	}

	fmt.Println(result.Context)

	if !result.FoundRelevant {
		fmt.Fprintln(os.Stderr, "warning: no chunk cleared the relevance threshold")
		if contextStrict {
			os.Exit(2)
		}
	}
	return nil
}
