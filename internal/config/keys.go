package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SIGNALBOARD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "SIGNALBOARD_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "data.source", typ: kString, env: "SIGNALBOARD_DATA_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Data.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Source },
	},
	{
		key: "data.variant", typ: kString, env: "SIGNALBOARD_DATA_VARIANT",
		apply:   func(cfg *Config, v any) { cfg.Data.Variant = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Variant },
	},
	{
		key: "ingest.fetch_timeout", typ: kDuration, env: "SIGNALBOARD_INGEST_FETCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Ingest.FetchTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Ingest.FetchTimeout },
	},
	{
		key: "ingest.max_retries", typ: kInt, env: "SIGNALBOARD_INGEST_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.Ingest.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.MaxRetries },
	},
	{
		key: "ingest.refresh_interval", typ: kDuration, env: "SIGNALBOARD_INGEST_REFRESH_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Ingest.RefreshInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Ingest.RefreshInterval },
	},
	{
		key: "pipeline.clustering_delay", typ: kDuration, env: "SIGNALBOARD_PIPELINE_CLUSTERING_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.ClusteringDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Pipeline.ClusteringDelay },
	},
	{
		key: "pipeline.scenario_delay", typ: kDuration, env: "SIGNALBOARD_PIPELINE_SCENARIO_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.ScenarioDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Pipeline.ScenarioDelay },
	},
	{
		key: "pipeline.rules_file", typ: kString, env: "SIGNALBOARD_PIPELINE_RULES_FILE",
		apply:   func(cfg *Config, v any) { cfg.Pipeline.RulesFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Pipeline.RulesFile },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SIGNALBOARD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "SIGNALBOARD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
