// Package tractconfig resolves a Tract's on-disk configuration (spec.md
// §6): a TOML file read through viper, with environment-variable
// overrides and a direct-file fallback for callers that need config
// before (or instead of) viper initialization. Grounded on
// steveyegge-beads' internal/config/local_config.go (direct-read
// LocalConfig + LoadLocalConfigWithEnv's env-override-wins layering),
// transposed from local_config.go's single-purpose YAML reader onto
// viper's multi-source resolution so config.toml, TRACT_*  environment
// variables, and hard-coded defaults all merge through one source of
// truth instead of a second hand-rolled reader.
package tractconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tract-dev/tract/internal/types"
)

// Config is a Tract's resolved on-disk configuration (spec.md §6).
type Config struct {
	DBPath            string      `mapstructure:"db_path" toml:"db_path"`
	TokenBudget       TokenBudget `mapstructure:"token_budget" toml:"token_budget"`
	TokenizerEncoding string      `mapstructure:"tokenizer_encoding" toml:"tokenizer_encoding"`
	CommitReasoning   bool        `mapstructure:"commit_reasoning" toml:"commit_reasoning"`
	StrictTags        bool        `mapstructure:"strict_tags" toml:"strict_tags"`

	OperationConfigs OperationConfigsTOML `mapstructure:"operation_configs" toml:"operation_configs"`
}

// TokenBudget carries the optional per-tract compile ceiling (spec.md
// §6: "token_budget.max_tokens?").
type TokenBudget struct {
	MaxTokens *int `mapstructure:"max_tokens" toml:"max_tokens,omitempty"`
}

// LLMConfigTOML is the TOML-decodable shape of types.LLMConfig: viper's
// mapstructure decoder needs plain (non-pointer-heavy) fields, so this
// is converted to types.LLMConfig via ToLLMConfig after load.
type LLMConfigTOML struct {
	Model            string         `mapstructure:"model"`
	Temperature      *float64       `mapstructure:"temperature"`
	TopP             *float64       `mapstructure:"top_p"`
	MaxTokens        *int           `mapstructure:"max_tokens"`
	StopSequences    []string       `mapstructure:"stop_sequences"`
	FrequencyPenalty *float64       `mapstructure:"frequency_penalty"`
	PresencePenalty  *float64       `mapstructure:"presence_penalty"`
	TopK             *int           `mapstructure:"top_k"`
	Seed             *int64         `mapstructure:"seed"`
	Extra            map[string]any `mapstructure:"extra"`
}

// isZero reports whether none of LLMConfigTOML's fields were set.
func (c LLMConfigTOML) isZero() bool {
	return c.Model == "" && c.Temperature == nil && c.TopP == nil && c.MaxTokens == nil &&
		c.StopSequences == nil && c.FrequencyPenalty == nil && c.PresencePenalty == nil &&
		c.TopK == nil && c.Seed == nil && len(c.Extra) == 0
}

// ToLLMConfig converts the TOML-decodable shape to types.LLMConfig, or
// nil if the section was never set (spec.md §6's OperationConfigs
// sub-fields are all optional).
func (c LLMConfigTOML) ToLLMConfig() *types.LLMConfig {
	if c.isZero() {
		return nil
	}
	out := &types.LLMConfig{
		TopP:             c.TopP,
		MaxTokens:        c.MaxTokens,
		StopSequences:    c.StopSequences,
		FrequencyPenalty: c.FrequencyPenalty,
		PresencePenalty:  c.PresencePenalty,
		TopK:             c.TopK,
		Seed:             c.Seed,
		Extra:            c.Extra,
	}
	if c.Model != "" {
		out.Model = &c.Model
	}
	if c.Temperature != nil {
		out.Temperature = c.Temperature
	}
	return out
}

// OperationConfigsTOML is the TOML-decodable shape of
// types.OperationConfigs (spec.md §6).
type OperationConfigsTOML struct {
	Chat        LLMConfigTOML `mapstructure:"chat" toml:"chat,omitempty"`
	Compress    LLMConfigTOML `mapstructure:"compress" toml:"compress,omitempty"`
	Merge       LLMConfigTOML `mapstructure:"merge" toml:"merge,omitempty"`
	Orchestrate LLMConfigTOML `mapstructure:"orchestrate" toml:"orchestrate,omitempty"`
}

// ToOperationConfigs converts to types.OperationConfigs.
func (c OperationConfigsTOML) ToOperationConfigs() types.OperationConfigs {
	return types.OperationConfigs{
		Chat:        c.Chat.ToLLMConfig(),
		Compress:    c.Compress.ToLLMConfig(),
		Merge:       c.Merge.ToLLMConfig(),
		Orchestrate: c.Orchestrate.ToLLMConfig(),
	}
}

const defaultTokenizerEncoding = "cl100k_base"

func defaults() Config {
	return Config{
		DBPath:            "tract.db",
		TokenizerEncoding: defaultTokenizerEncoding,
		CommitReasoning:   true,
		StrictTags:        false,
	}
}

// Load resolves config.toml in dir through viper, with TRACT_* environment
// variables overriding file values and built-in defaults underneath both
// (spec.md §6). Missing config.toml is not an error: the caller gets
// defaults layered with any environment overrides, mirroring
// LoadLocalConfigWithEnv's "missing file -> empty struct, env still
// applies" behavior.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("TRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := defaults()
	// A legacy config.yaml (predating config.toml) supplies defaults
	// underneath config.toml and TRACT_* env vars, mirroring
	// LoadLocalConfigWithEnv's "env overrides file" layering one level
	// deeper: legacy file < config.toml < environment.
	legacy := loadLegacyYAML(dir)
	if legacy.DBPath != "" {
		d.DBPath = legacy.DBPath
	}
	if legacy.TokenizerEncoding != "" {
		d.TokenizerEncoding = legacy.TokenizerEncoding
	}
	d.CommitReasoning = d.CommitReasoning || legacy.CommitReasoning
	d.StrictTags = d.StrictTags || legacy.StrictTags

	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("tokenizer_encoding", d.TokenizerEncoding)
	v.SetDefault("commit_reasoning", d.CommitReasoning)
	v.SetDefault("strict_tags", d.StrictTags)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read %s: %w", filepath.Join(dir, "config.toml"), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dir, d.DBPath)
	}
	return &cfg, nil
}
