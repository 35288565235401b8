package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"brokerbench/internal/bench"
	"brokerbench/internal/broker"
	"brokerbench/internal/config"
	"brokerbench/internal/metrics"
	"brokerbench/internal/results"
)

func main() {
	root := &cobra.Command{
		Use:   "publisher",
		Short: "Run the publishing side of a broker benchmark",
		Long: `Starts NUM_PUBLISHERS concurrent workers that flood the benchmark
channel for PUBLISH_DURATION_SECONDS, bracketing the traffic with the
start/end sentinel pair emitted by the first worker.`,
		SilenceUsage: true,
		RunE:         runPublisher,
	}
	root.Flags().String("env-file", ".env", "key=value config file, overridden by the environment")
	root.Flags().String("broker", "", "broker type override (redis, nats, mqtt, memory)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPublisher(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if override, _ := cmd.Flags().GetString("broker"); override != "" {
		cfg.BrokerType = override
	}

	// Validate the selector once up front; the factory below cannot
	// surface the error from inside a worker.
	if _, err := broker.New(cfg.BrokerType, cfg.BrokerOptions("probe")); err != nil {
		return err
	}

	rec := metrics.Recorder(metrics.Nop())
	if cfg.MetricsPort > 0 {
		rec = metrics.NewPromRecorder(prometheus.DefaultRegisterer, results.RolePublisher)
		go metrics.Serve(cfg.MetricsPort)
	}

	log.WithFields(log.Fields{
		"broker":   cfg.BrokerType,
		"workers":  cfg.NumPublishers,
		"duration": cfg.PublishDuration,
		"channel":  cfg.Channel,
	}).Info("starting publisher benchmark")

	pid := os.Getpid()
	factory := func(workerID int) broker.MessageBroker {
		clientID := fmt.Sprintf("pub-%d-%d", pid, workerID)
		b, err := broker.New(cfg.BrokerType, cfg.BrokerOptions(clientID))
		if err != nil {
			return nil
		}
		return b
	}

	driver := bench.NewPublisher(bench.PublisherConfig{
		Workers:     cfg.NumPublishers,
		Duration:    cfg.PublishDuration,
		Channel:     cfg.Channel,
		WarmupPause: cfg.WarmupPause,
	}, factory, rec)
	stats := driver.Run()
	rec.ReportThroughput(stats.Throughput())

	writer := results.NewWriter(cfg.OutDir, results.ResolveBatchID(cfg.BatchID), cfg.BrokerType, config.Host())
	instanceID := fmt.Sprintf("publisher_%d", pid)
	if _, err := writer.WritePublisher(stats, instanceID); err != nil {
		log.WithError(err).Warn("could not persist publisher result")
	}

	avg := stats.Throughput()
	if stats.Workers > 0 {
		avg /= float64(stats.Workers)
	}
	log.WithFields(log.Fields{
		"published":            stats.Published,
		"failed":               stats.Failed,
		"throughput_msg_s":     stats.Throughput(),
		"per_worker_avg_msg_s": avg,
	}).Info("publisher benchmark complete")
	return nil
}
