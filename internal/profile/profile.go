package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Version is the semantic version of the deskpilot server.
const Version = "0.3.0"

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where deskpilot stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI configuration
	AIBaseURL        string
	AIAPIKey         string
	AIEmbeddingModel string
	AIChatModel      string
	AIMaxRetries     int
	AITimeout        time.Duration

	// Web search configuration
	SearchAPIKey     string
	SearchEngineID   string
	SearchMaxResults int
	SearchTimeout    time.Duration

	// Retrieval configuration
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	// KnowledgeDir holds markdown or text documents synced into the
	// knowledge base. Empty disables directory sync.
	KnowledgeDir string
	SyncInterval time.Duration

	// Confidence scoring configuration
	SimilarityWeight float64
	CertaintyWeight  float64
	HighThreshold    float64
	LowThreshold     float64

	// Conversation configuration
	HistoryWindow     int
	ContextCharBudget int
	FollowUpMaxWords  int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if a generative/embedding backend is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// IsSearchEnabled returns true if the external search capability is configured.
func (p *Profile) IsSearchEnabled() bool {
	return p.SearchAPIKey != "" && p.SearchEngineID != ""
}

// Validate checks configuration invariants that are fatal at startup.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" && p.Mode != "demo" {
		return errors.Errorf("invalid mode %q, expected prod, dev or demo", p.Mode)
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("invalid driver %q, expected sqlite or postgres", p.Driver)
	}
	if p.ChunkSize <= 0 {
		return errors.Errorf("chunk size must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return errors.Errorf("chunk overlap %d must be in [0, %d)", p.ChunkOverlap, p.ChunkSize)
	}
	if p.TopK <= 0 {
		return errors.Errorf("top-k must be positive, got %d", p.TopK)
	}
	if w := p.SimilarityWeight + p.CertaintyWeight; w < 0.999 || w > 1.001 {
		return errors.Errorf("confidence weights must sum to 1, got %.3f", w)
	}
	if p.LowThreshold < 0 || p.HighThreshold > 1 || p.LowThreshold >= p.HighThreshold {
		return errors.Errorf("thresholds must satisfy 0 <= low < high <= 1, got %.2f/%.2f", p.LowThreshold, p.HighThreshold)
	}
	return nil
}

// New reads configuration from the environment and an optional config file.
// Environment variables use the DESKPILOT_ prefix, e.g. DESKPILOT_AI_API_KEY.
func New(configFile string) (*Profile, error) {
	v := viper.New()
	v.SetEnvPrefix("deskpilot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	p := &Profile{
		Mode:    v.GetString("mode"),
		Addr:    v.GetString("addr"),
		Port:    v.GetInt("port"),
		Data:    v.GetString("data"),
		DSN:     v.GetString("dsn"),
		Driver:  v.GetString("driver"),
		Version: Version,

		AIBaseURL:        v.GetString("ai.base-url"),
		AIAPIKey:         v.GetString("ai.api-key"),
		AIEmbeddingModel: v.GetString("ai.embedding-model"),
		AIChatModel:      v.GetString("ai.chat-model"),
		AIMaxRetries:     v.GetInt("ai.max-retries"),
		AITimeout:        v.GetDuration("ai.timeout"),

		SearchAPIKey:     v.GetString("search.api-key"),
		SearchEngineID:   v.GetString("search.engine-id"),
		SearchMaxResults: v.GetInt("search.max-results"),
		SearchTimeout:    v.GetDuration("search.timeout"),

		ChunkSize:    v.GetInt("retrieval.chunk-size"),
		ChunkOverlap: v.GetInt("retrieval.chunk-overlap"),
		TopK:         v.GetInt("retrieval.top-k"),
		KnowledgeDir: v.GetString("retrieval.knowledge-dir"),
		SyncInterval: v.GetDuration("retrieval.sync-interval"),

		SimilarityWeight: v.GetFloat64("confidence.similarity-weight"),
		CertaintyWeight:  v.GetFloat64("confidence.certainty-weight"),
		HighThreshold:    v.GetFloat64("confidence.high-threshold"),
		LowThreshold:     v.GetFloat64("confidence.low-threshold"),

		HistoryWindow:     v.GetInt("conversation.history-window"),
		ContextCharBudget: v.GetInt("conversation.context-char-budget"),
		FollowUpMaxWords:  v.GetInt("conversation.follow-up-max-words"),
	}

	if p.DSN == "" && p.Driver == "sqlite" {
		p.DSN = fmt.Sprintf("%s/deskpilot.db", p.Data)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8230)
	v.SetDefault("data", ".")
	v.SetDefault("driver", "sqlite")

	v.SetDefault("ai.base-url", "https://api.openai.com/v1")
	v.SetDefault("ai.embedding-model", "text-embedding-3-small")
	v.SetDefault("ai.chat-model", "gpt-4o-mini")
	v.SetDefault("ai.max-retries", 3)
	v.SetDefault("ai.timeout", 30*time.Second)

	v.SetDefault("search.max-results", 3)
	v.SetDefault("search.timeout", 10*time.Second)

	v.SetDefault("retrieval.chunk-size", 1000)
	v.SetDefault("retrieval.chunk-overlap", 200)
	v.SetDefault("retrieval.top-k", 3)
	v.SetDefault("retrieval.knowledge-dir", "")
	v.SetDefault("retrieval.sync-interval", 5*time.Minute)

	v.SetDefault("confidence.similarity-weight", 0.7)
	v.SetDefault("confidence.certainty-weight", 0.3)
	v.SetDefault("confidence.high-threshold", 0.7)
	v.SetDefault("confidence.low-threshold", 0.4)

	v.SetDefault("conversation.history-window", 10)
	v.SetDefault("conversation.context-char-budget", 2000)
	v.SetDefault("conversation.follow-up-max-words", 6)
}
