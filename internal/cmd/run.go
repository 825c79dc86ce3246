package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clusterpilot/clusterpilot/internal/actuator"
	"github.com/clusterpilot/clusterpilot/internal/autoscaler"
	"github.com/clusterpilot/clusterpilot/internal/balancer"
	"github.com/clusterpilot/clusterpilot/internal/collector"
	"github.com/clusterpilot/clusterpilot/internal/config"
	"github.com/clusterpilot/clusterpilot/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the balancing and scaling control loops",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// dryRunDriver accepts every scaling request without touching the
// cluster, so decisions can be observed before being trusted.
type dryRunDriver struct {
	log logr.Logger
}

func (d dryRunDriver) ScaleDeployment(_ context.Context, deployment string, replicas int) error {
	d.log.Info("Dry run: would scale deployment", "deployment", deployment, "replicas", replicas)
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logging.NewLogger(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	emitter := actuator.NewEmitter(registry)

	lb, err := balancer.New(balancer.Config{
		Strategy:     cfg.Strategy(),
		ProbeTimeout: cfg.Balancer.ProbeTimeout,
		Logger:       log,
		Observer:     emitter,
	})
	if err != nil {
		return err
	}
	for _, b := range cfg.Balancer.Backends {
		lb.AddBackend(b.Name, b.Host, b.Port, b.Weight)
	}

	var driver autoscaler.ScalingDriver
	if cfg.Deployment.DryRun {
		driver = dryRunDriver{log: log}
	} else {
		driver, err = actuator.NewKubeDriverForConfig(cfg.Deployment.Kubeconfig, cfg.Deployment.Namespace, log)
		if err != nil {
			return err
		}
	}

	scaler := autoscaler.New(autoscaler.Config{
		Deployment:      cfg.Deployment.Name,
		InitialReplicas: cfg.Deployment.InitialReplicas,
		Driver:          driver,
		Logger:          log,
		Observer:        emitter,
	})

	if cfg.Autoscaler.PoliciesFile != "" {
		data, err := os.ReadFile(cfg.Autoscaler.PoliciesFile)
		if err != nil {
			return fmt.Errorf("reading policies file: %w", err)
		}
		policies, err := config.ParsePolicyFile(data, log)
		if err != nil {
			return err
		}
		for _, p := range policies {
			if err := scaler.AddPolicy(p); err != nil {
				return err
			}
		}
	}

	if cfg.Metrics.Addr != "" {
		serveMetrics(ctx, cfg.Metrics.Addr, registry, log)
	}

	log.Info("Control loops starting",
		"strategy", cfg.Balancer.Strategy,
		"deployment", cfg.Deployment.Name,
		"healthCheckInterval", cfg.Balancer.HealthCheckInterval,
		"checkInterval", cfg.Autoscaler.CheckInterval)

	poolSource := collector.NewPoolSource(func() collector.PoolStats {
		stats := lb.ClusterStats()
		return collector.PoolStats{
			TotalConnections: stats.TotalConnections,
			TotalRequests:    stats.TotalRequests,
		}
	}, nil)
	coll := collector.New(scaler, cfg.Autoscaler.CheckInterval, log, poolSource)

	go healthCheckLoop(ctx, lb, cfg.Balancer.HealthCheckInterval)
	go coll.Run(ctx)

	<-ctx.Done()
	log.Info("Shutting down")
	return nil
}

// healthCheckLoop runs the periodic probe sweep until the context is
// cancelled.
func healthCheckLoop(ctx context.Context, lb *balancer.LoadBalancer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lb.HealthCheck(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// serveMetrics exposes the Prometheus registry on addr until the
// context is cancelled.
func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, log logr.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("Metrics endpoint listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Metrics endpoint failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
