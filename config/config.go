package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"roteiro/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. ROTEIRO_RETRIEVE_TOP_K.
const EnvPrefix = "ROTEIRO"

// Config holds all configuration for the retrieval engine.
type Config struct {
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base" split_words:"true"`
	Chunk         ChunkConfig         `yaml:"chunk"`
	Retrieve      RetrieveConfig      `yaml:"retrieve"`
	DomainTerms   map[string]float64  `yaml:"domain_terms" split_words:"true"`
	Synonyms      map[string][]string `yaml:"synonyms" ignored:"true"` // query term -> alternatives tried in lexical scoring
	Lexical       LexicalConfig       `yaml:"lexical"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// KnowledgeBaseConfig selects the files that make up the corpus.
type KnowledgeBaseConfig struct {
	Root     string   `yaml:"root"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ChunkConfig holds chunking configuration.
type ChunkConfig struct {
	Size      int    `yaml:"size"`
	Overlap   int    `yaml:"overlap"`
	Strategy  string `yaml:"strategy"`                      // "window" or "paragraph"
	MinLength int    `yaml:"min_length" split_words:"true"` // paragraph strategy only; 0 keeps all
}

// RetrieveConfig holds ranking and context assembly configuration.
type RetrieveConfig struct {
	TopK               int           `yaml:"top_k" split_words:"true"`
	RelevanceThreshold float64       `yaml:"relevance_threshold" split_words:"true"`
	SemanticWeight     float64       `yaml:"semantic_weight" split_words:"true"`
	LexicalWeight      float64       `yaml:"lexical_weight" split_words:"true"`
	MaxContextLength   int           `yaml:"max_context_length" split_words:"true"`
	EmbedTimeout       time.Duration `yaml:"embed_timeout" split_words:"true"`
	MMRLambda          float64       `yaml:"mmr_lambda" split_words:"true"` // 0 disables MMR
	DedupJaccard       float64       `yaml:"dedup_jaccard" split_words:"true"`
}

// LexicalConfig holds tokenizer configuration.
type LexicalConfig struct {
	Stopwords []string `yaml:"stopwords"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Provider          string  `yaml:"provider"` // "openai", "openrouter", "ollama", "gemini", "hash"
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url" split_words:"true"`
	APIKeyEnv         string  `yaml:"api_key_env" split_words:"true"` // Environment variable for API key
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size" split_words:"true"`
	RequestsPerSecond float64 `yaml:"requests_per_second" split_words:"true"`
}

// CacheConfig holds retrieval result cache configuration.
type CacheConfig struct {
	Size int           `yaml:"size"` // 0 disables the cache
	TTL  time.Duration `yaml:"ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultDomainTerms is the bonus table for the dispensation guide corpus.
// Specific drug names and the regimen acronym outweigh generic terms.
func DefaultDomainTerms() map[string]float64 {
	return map[string]float64{
		"pqt-u":             10,
		"poliquimioterapia": 5,
		"rifampicina":       5,
		"dapsona":           5,
		"clofazimina":       5,
		"hanseníase":        1,
		"dispensação":       1,
		"dose":              1,
		"comprimido":        1,
	}
}

// DefaultSynonyms is the dictionary of lay and clinical names for the
// guide's core vocabulary.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"hanseníase":  {"lepra", "doença de hansen", "mycobacterium leprae"},
		"medicamento": {"fármaco", "droga", "remédio", "medicação"},
		"dispensação": {"dispensar", "entrega", "fornecimento", "distribuição"},
		"paciente":    {"usuário", "cliente"},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		KnowledgeBase: KnowledgeBaseConfig{
			Root:     ".",
			Includes: []string{"**/*.md", "**/*.txt"},
			Excludes: []string{"**/.git/**", "**/.roteiro/**", "**/node_modules/**"},
		},
		Chunk: ChunkConfig{
			Size:      1000,
			Overlap:   200,
			Strategy:  "window",
			MinLength: 50,
		},
		Retrieve: RetrieveConfig{
			TopK:               3,
			RelevanceThreshold: 0.1,
			SemanticWeight:     0.6,
			LexicalWeight:      0.4,
			MaxContextLength:   3000,
			EmbedTimeout:       5 * time.Second,
			MMRLambda:          0,
			DedupJaccard:       0.8,
		},
		DomainTerms: DefaultDomainTerms(),
		Synonyms:    DefaultSynonyms(),
		Embedding: EmbeddingConfig{
			Enabled:   false,
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 100,
		},
		Cache: CacheConfig{
			Size: 256,
			TTL:  time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration: defaults < YAML file < environment. A missing
// file leaves the defaults in place. A .env file in the working directory is
// loaded first; it never overrides variables already set.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// The domain term and synonym tables are replaced, not merged, when
		// the file sets them.
		cfg.DomainTerms, cfg.Synonyms = nil, nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.DomainTerms == nil {
			cfg.DomainTerms = DefaultDomainTerms()
		}
		if cfg.Synonyms == nil {
			cfg.Synonyms = DefaultSynonyms()
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory, looking for roteiro.yaml
// and then .roteiro/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	for _, path := range []string{
		filepath.Join(dir, "roteiro.yaml"),
		filepath.Join(dir, ".roteiro", "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// No file: defaults plus environment.
	return Load(filepath.Join(dir, "roteiro.yaml"))
}

// Validate enforces the configuration invariants. Every violation wraps
// domain.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	var problems []string

	if c.Chunk.Size <= 0 {
		problems = append(problems, fmt.Sprintf("chunk.size must be positive, got %d", c.Chunk.Size))
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		problems = append(problems, fmt.Sprintf("chunk.overlap must be in [0, chunk.size), got %d", c.Chunk.Overlap))
	}
	if c.Chunk.MinLength < 0 {
		problems = append(problems, fmt.Sprintf("chunk.min_length must not be negative, got %d", c.Chunk.MinLength))
	}
	switch c.Chunk.Strategy {
	case "", "window", "paragraph":
	default:
		problems = append(problems, fmt.Sprintf("chunk.strategy must be window or paragraph, got %q", c.Chunk.Strategy))
	}

	r := c.Retrieve
	if r.TopK <= 0 {
		problems = append(problems, fmt.Sprintf("retrieve.top_k must be positive, got %d", r.TopK))
	}
	if r.SemanticWeight < 0 || r.LexicalWeight < 0 {
		problems = append(problems, "retrieve weights must not be negative")
	}
	if r.SemanticWeight == 0 && r.LexicalWeight == 0 {
		problems = append(problems, "retrieve.semantic_weight and retrieve.lexical_weight are both zero")
	}
	if r.MaxContextLength <= 0 {
		problems = append(problems, fmt.Sprintf("retrieve.max_context_length must be positive, got %d", r.MaxContextLength))
	}
	if r.EmbedTimeout < 0 {
		problems = append(problems, "retrieve.embed_timeout must not be negative")
	}
	if r.MMRLambda < 0 || r.MMRLambda > 1 {
		problems = append(problems, fmt.Sprintf("retrieve.mmr_lambda must be in [0, 1], got %v", r.MMRLambda))
	}

	for term, weight := range c.DomainTerms {
		if weight < 0 {
			problems = append(problems, fmt.Sprintf("domain_terms[%q] must not be negative, got %v", term, weight))
		}
	}

	for term, syns := range c.Synonyms {
		if strings.TrimSpace(term) == "" {
			problems = append(problems, "synonyms must not contain a blank term")
		}
		if len(syns) == 0 {
			problems = append(problems, fmt.Sprintf("synonyms[%q] has no alternatives", term))
		}
	}

	if c.Cache.Size < 0 {
		problems = append(problems, fmt.Sprintf("cache.size must not be negative, got %d", c.Cache.Size))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// APIKey resolves the embedding API key from the configured variable.
func (c *Config) APIKey() string {
	if c.Embedding.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CorpusDBPath returns the path to the corpus database.
func CorpusDBPath(dir string) string {
	return filepath.Join(dir, ".roteiro", "corpus.db")
}

// EnsureDir ensures the .roteiro directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".roteiro"), 0755)
}
