package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"brokerbench/internal/results"
)

func main() {
	root := &cobra.Command{
		Use:   "aggregator <results-dir> [broker-type]",
		Short: "Aggregate the persisted results of one benchmark batch",
		Long: `Reads every JSON result record in the given batch directory and prints
per-instance details plus the aggregate statistics: average messages,
average duration, average throughput, and combined throughput (total
messages over average duration).`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         runAggregator,
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAggregator(_ *cobra.Command, args []string) error {
	dir := args[0]

	records, err := results.LoadDir(dir)
	if err != nil {
		return err
	}
	runs := results.SubscriberRuns(records)

	brokerType := "unknown"
	if len(args) > 1 {
		brokerType = args[1]
	} else if len(records) > 0 {
		brokerType = records[0].BrokerType
	}

	agg, err := results.Aggregate(runs)
	if err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}

	fmt.Printf("\n%s benchmark results (%s)\n", brokerType, dir)
	fmt.Println("-----------------------------------------------")
	fmt.Printf("  Subscriber instances:  %d\n", agg.Instances)
	fmt.Printf("  Avg messages/instance: %.0f\n", agg.AvgMessages)
	fmt.Printf("  Avg duration:          %.3f s\n", agg.AvgDuration.Seconds())
	fmt.Printf("  Avg throughput:        %.2f msg/s\n", agg.AvgThroughput)
	fmt.Printf("  Combined throughput:   %.2f msg/s\n", agg.CombinedThroughput)

	fmt.Println("\nPer-instance details")
	fmt.Println("-----------------------------------------------")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  subscriber\tmessages\tduration\tthroughput")
	for _, run := range runs {
		fmt.Fprintf(w, "  %s\t%d\t%.3fs\t%.2f msg/s\n",
			run.SubscriberID, run.Received, run.Duration.Seconds(), run.Throughput())
	}
	w.Flush()
	fmt.Println()
	return nil
}
