package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

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
		Use:   "subscriber",
		Short: "Run the measuring side of a broker benchmark",
		Long: `Subscribes to the benchmark channel, opens its measurement window on
the start sentinel, counts payload messages until the end sentinel and
persists the result as a JSON record. The process stays subscribed after
reporting until it is stopped, matching the long-lived deployment.`,
		SilenceUsage: true,
		RunE:         runSubscriber,
	}
	root.Flags().String("env-file", ".env", "key=value config file, overridden by the environment")
	root.Flags().String("broker", "", "broker type override (redis, nats, mqtt, memory)")
	root.Flags().Bool("oneshot", false, "exit right after the result is reported")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSubscriber(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if override, _ := cmd.Flags().GetString("broker"); override != "" {
		cfg.BrokerType = override
	}
	oneshot, _ := cmd.Flags().GetBool("oneshot")

	clientID := fmt.Sprintf("%s-%d", cfg.SubscriberID, os.Getpid())
	b, err := broker.New(cfg.BrokerType, cfg.BrokerOptions(clientID))
	if err != nil {
		return err
	}

	rec := metrics.Recorder(metrics.Nop())
	if cfg.MetricsPort > 0 {
		rec = metrics.NewPromRecorder(prometheus.DefaultRegisterer, results.RoleSubscriber)
		go metrics.Serve(cfg.MetricsPort)
	}

	writer := results.NewWriter(cfg.OutDir, results.ResolveBatchID(cfg.BatchID), cfg.BrokerType, config.Host())
	report := func(stats results.RunStats) {
		rec.ReportThroughput(stats.Throughput())
		if _, err := writer.WriteSubscriber(stats); err != nil {
			log.WithError(err).Warn("could not persist subscriber result")
		}
	}

	driver := bench.NewSubscriber(bench.SubscriberConfig{
		SubscriberID:     cfg.SubscriberID,
		Channel:          cfg.Channel,
		ExpectedDuration: cfg.PublishDuration,
		StartGrace:       cfg.StartGrace,
		RunMargin:        cfg.RunMargin,
		KeepAlive:        !oneshot,
	}, b, rec, report)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := driver.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.WithFields(log.Fields{
		"subscriber": stats.SubscriberID,
		"received":   stats.Received,
		"duration":   stats.Duration,
		"throughput": stats.Throughput(),
	}).Info("subscriber stopped")
	return nil
}
