package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/logs"
	"github.com/cube2222/octofetch/octofetch"
	"github.com/cube2222/octofetch/outputs/formats"
)

var rootCmd = &cobra.Command{
	Use:   "octofetch <dataset>",
	Args:  cobra.ExactArgs(1),
	Short: "Fetch and print a dataset.",
	Example: `octofetch people
octofetch people --order age:desc,name --output json
octofetch https://example.com/events.json.gz --consumers 4`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logs.InitializeFileLogger(); err != nil {
			return errors.Wrap(err, "couldn't initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logs.CloseLogger()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch profileMode {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(config.OctofetchHomeDir), profile.Quiet).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(config.OctofetchHomeDir), profile.Quiet).Stop()
		default:
			return errors.Errorf("invalid profile mode %s, expected cpu or mem", profileMode)
		}

		cfg, err := readConfig(cmd)
		if err != nil {
			return err
		}
		ordering, err := octofetch.ParseOrdering(order)
		if err != nil {
			return errors.Wrap(err, "couldn't parse ordering")
		}
		if consumers < 1 || repeat < 1 {
			return errors.New("consumers and repeat have to be positive")
		}

		env, err := newEnvironment(ctx, cfg, clock.WallClock)
		if err != nil {
			return err
		}
		defer env.Close()

		dataset, err := env.connector.GetDataset(ctx, args[0])
		if err != nil {
			return errors.Wrapf(err, "couldn't get dataset %s", args[0])
		}
		view := &orderedDataset{
			ForwardingDataset: connectors.ForwardingDataset{Delegate: dataset},
			ordering:          ordering,
		}

		var results [][]*execution.Record
		for i := 0; i < repeat; i++ {
			start := time.Now()
			if consumers > 1 {
				results, err = readShared(ctx, view, consumers, cfg.Streaming.ShareBufferLimit)
			} else {
				var records []*execution.Record
				records, err = readDataset(ctx, view)
				results = [][]*execution.Record{records}
			}
			if err != nil {
				return err
			}
			log.Printf("fetch %d of %s took %s", i+1, args[0], time.Since(start))
		}
		stats := env.cache.Stats()
		log.Printf("cache: %d hits, %d misses, %d loads, %d load failures, %d rejections", stats.Hits, stats.Misses, stats.Loads, stats.LoadFailures, stats.Rejections)

		for i := range results {
			if len(results) > 1 {
				fmt.Fprintf(os.Stderr, "consumer %d: %d records\n", i+1, len(results[i]))
			}
			if err := printRecords(dataset.Schema(), results[i]); err != nil {
				return err
			}
		}
		return nil
	},
}

// orderedDataset serves the requested ordering as its natural order.
type orderedDataset struct {
	connectors.ForwardingDataset
	ordering octofetch.Ordering
}

func (d *orderedDataset) Data(ctx context.Context) (execution.RecordStream, error) {
	if len(d.ordering) == 0 {
		return d.Delegate.Data(ctx)
	}
	return d.Delegate.SortedData(ctx, d.ordering)
}

func readDataset(ctx context.Context, dataset connectors.Dataset) ([]*execution.Record, error) {
	stream, err := dataset.Data(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get data")
	}
	records, err := execution.ReadAll(ctx, stream)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read data")
	}
	return records, nil
}

// readShared reads the dataset with multiple concurrent consumers, all attached to a single fetch.
func readShared(ctx context.Context, dataset connectors.Dataset, consumers, limit int) ([][]*execution.Record, error) {
	g, ctx := errgroup.WithContext(ctx)
	shared := connectors.NewShared(ctx, dataset, limit)
	defer shared.Reset()

	out := make([][]*execution.Record, consumers)
	for i := 0; i < consumers; i++ {
		i := i
		g.Go(func() error {
			records, err := readDataset(ctx, shared)
			if err != nil {
				return errors.Wrapf(err, "consumer %d failed", i+1)
			}
			out[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Printf("shared read: %d consumers, %d fallbacks", consumers, shared.Fallbacks())
	return out, nil
}

func printRecords(schema octofetch.Schema, records []*execution.Record) error {
	formatter, err := formats.New(output, os.Stdout)
	if err != nil {
		return err
	}
	formatter.SetSchema(schema)
	for _, rec := range records {
		if err := formatter.Write(rec.Values()); err != nil {
			return errors.Wrap(err, "couldn't write record")
		}
	}
	return formatter.Close()
}

func readConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read config")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Streaming.Timeout = timeout
	}
	return cfg, nil
}

func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

var configPath string
var order string
var output string
var consumers int
var repeat int
var timeout time.Duration
var profileMode string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path of the configuration file.")
	rootCmd.Flags().StringVar(&order, "order", "", "Order of the output, as column[:asc|desc],...")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table, csv or json.")
	rootCmd.Flags().IntVar(&consumers, "consumers", 1, "Count of concurrent consumers sharing a single fetch.")
	rootCmd.Flags().IntVar(&repeat, "repeat", 1, "Count of times to fetch the dataset, repeated fetches are served from the cache.")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Time after which unclosed streams get closed, 0 disables it. Overrides the configuration.")
	rootCmd.Flags().StringVar(&profileMode, "profile", "", "Write a cpu or mem profile to the octofetch home directory.")
}
