package port

type Tokenizer interface {
	Tokenize(text string) []string

	TokenSet(text string) map[string]struct{}
}
