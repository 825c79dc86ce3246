// Package config loads and validates the clusterpilot configuration:
// the balancing strategy, probe and evaluation intervals, the scaled
// deployment target, the backend pool, and scaling policies.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clusterpilot/clusterpilot/internal/balancer"
)

// Config is the complete clusterpilot configuration.
type Config struct {
	Balancer   BalancerConfig   `mapstructure:"balancer"`
	Autoscaler AutoscalerConfig `mapstructure:"autoscaler"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// BalancerConfig controls the load balancing loop.
type BalancerConfig struct {
	// Strategy is one of round-robin, least-connections, weighted,
	// random, ip-hash.
	Strategy string `mapstructure:"strategy"`

	// HealthCheckInterval is how often the probe sweep runs.
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`

	// ProbeTimeout bounds each TCP reachability probe.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`

	// Backends is the initial backend pool.
	Backends []BackendConfig `mapstructure:"backends"`
}

// BackendConfig describes one backend replica.
type BackendConfig struct {
	Name   string `mapstructure:"name"`
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Weight int    `mapstructure:"weight"`
}

// AutoscalerConfig controls the scaling loop.
type AutoscalerConfig struct {
	// CheckInterval is how often policies are evaluated.
	CheckInterval time.Duration `mapstructure:"check_interval"`

	// PoliciesFile optionally points to a YAML file of scaling
	// policies loaded at startup.
	PoliciesFile string `mapstructure:"policies_file"`
}

// DeploymentConfig identifies the scaled deployment.
type DeploymentConfig struct {
	Name            string `mapstructure:"name"`
	Namespace       string `mapstructure:"namespace"`
	InitialReplicas int    `mapstructure:"initial_replicas"`

	// Kubeconfig is the path to a kubeconfig file; empty means
	// in-cluster configuration.
	Kubeconfig string `mapstructure:"kubeconfig"`

	// DryRun disables the Kubernetes driver; scaling decisions are
	// logged but not applied.
	DryRun bool `mapstructure:"dry_run"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it.
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Level       int  `mapstructure:"level"`
}

// SetDefaults registers default values with viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("balancer.strategy", string(balancer.StrategyRoundRobin))
	v.SetDefault("balancer.health_check_interval", 30*time.Second)
	v.SetDefault("balancer.probe_timeout", balancer.DefaultProbeTimeout)
	v.SetDefault("autoscaler.check_interval", 30*time.Second)
	v.SetDefault("deployment.namespace", "default")
	v.SetDefault("deployment.initial_replicas", 1)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", 0)
}

// Load unmarshals and validates the configuration held by viper.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints. Per-policy bounds are
// validated when policies are registered with the autoscaler.
func (c *Config) Validate() error {
	if _, err := balancer.ParseStrategy(c.Balancer.Strategy); err != nil {
		return err
	}
	if c.Balancer.HealthCheckInterval <= 0 {
		return fmt.Errorf("balancer.health_check_interval must be positive")
	}
	if c.Autoscaler.CheckInterval <= 0 {
		return fmt.Errorf("autoscaler.check_interval must be positive")
	}
	if c.Deployment.Name == "" {
		return fmt.Errorf("deployment.name must be set")
	}
	if c.Deployment.InitialReplicas < 1 {
		return fmt.Errorf("deployment.initial_replicas must be >= 1")
	}
	seen := make(map[string]bool)
	for _, b := range c.Balancer.Backends {
		if strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.Host) == "" {
			return fmt.Errorf("backend entries need a name and host")
		}
		if b.Port <= 0 || b.Port > 65535 {
			return fmt.Errorf("backend %q has invalid port %d", b.Name, b.Port)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate backend name %q", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// Strategy returns the parsed balancing strategy.
func (c *Config) Strategy() balancer.Strategy {
	s, _ := balancer.ParseStrategy(c.Balancer.Strategy)
	return s
}
