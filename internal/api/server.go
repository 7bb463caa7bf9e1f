package api

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tan-73/bluepath-optimizer/internal/opt"
	"github.com/tan-73/bluepath-optimizer/internal/store"
)

const defaultSeed = 42

type Server struct {
	Store       store.Store
	Broker      EventBroker
	Engine      *opt.Engine
	AuditSecret string
}

// NewServer wires the server from the environment. If DATABASE_URL is unset,
// uses the in-memory store; if REDIS_URL is unset, uses the in-process
// broker. OPTIMIZER_CONFIG may point at a YAML file overriding optimizer
// hyperparameters, and SEED fixes the random stream.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	cfg, err := loadOptimizerConfig()
	if err != nil {
		return nil, err
	}
	seed := int64(defaultSeed)
	if v := os.Getenv("SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SEED: %w", err)
		}
		seed = n
	}
	eng, err := opt.NewEngine(cfg, seed)
	if err != nil {
		return nil, err
	}

	secret := os.Getenv("AUDIT_SECRET")
	if secret == "" {
		secret = "default-secret-key"
	}

	return &Server{Store: s, Broker: broker, Engine: eng, AuditSecret: secret}, nil
}

// optimizerOverlay mirrors opt.Config with pointer fields so that only keys
// present in the YAML file override the defaults.
type optimizerOverlay struct {
	Particles   *int     `yaml:"particles"`
	Iterations  *int     `yaml:"iterations"`
	Waypoints   *int     `yaml:"waypoints"`
	WMax        *float64 `yaml:"w_max"`
	WMin        *float64 `yaml:"w_min"`
	C1Max       *float64 `yaml:"c1_max"`
	C1Min       *float64 `yaml:"c1_min"`
	C2Min       *float64 `yaml:"c2_min"`
	C2Max       *float64 `yaml:"c2_max"`
	ChaosFactor *float64 `yaml:"chaos_factor"`
}

func loadOptimizerConfig() (opt.Config, error) {
	cfg := opt.DefaultConfig()
	path := os.Getenv("OPTIMIZER_CONFIG")
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("OPTIMIZER_CONFIG: %w", err)
	}
	var ov optimizerOverlay
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return cfg, fmt.Errorf("OPTIMIZER_CONFIG: %w", err)
	}
	if ov.Particles != nil {
		cfg.Particles = *ov.Particles
	}
	if ov.Iterations != nil {
		cfg.Iterations = *ov.Iterations
	}
	if ov.Waypoints != nil {
		cfg.Waypoints = *ov.Waypoints
	}
	if ov.WMax != nil {
		cfg.WMax = *ov.WMax
	}
	if ov.WMin != nil {
		cfg.WMin = *ov.WMin
	}
	if ov.C1Max != nil {
		cfg.C1Max = *ov.C1Max
	}
	if ov.C1Min != nil {
		cfg.C1Min = *ov.C1Min
	}
	if ov.C2Min != nil {
		cfg.C2Min = *ov.C2Min
	}
	if ov.C2Max != nil {
		cfg.C2Max = *ov.C2Max
	}
	if ov.ChaosFactor != nil {
		cfg.ChaosFactor = *ov.ChaosFactor
	}
	return cfg, nil
}
