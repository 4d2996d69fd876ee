package cmd

import (
	"os"

	"github.com/juju/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cube2222/octofetch/octofetch"
	"github.com/cube2222/octofetch/outputs/formats"
)

var datasetsSchema = octofetch.NewSchema(
	octofetch.Field{Name: "name", Type: octofetch.String, Role: octofetch.RoleIdentifier},
	octofetch.Field{Name: "type", Type: octofetch.String, Role: octofetch.RoleAttribute},
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Args:  cobra.NoArgs,
	Short: "List the configured data sources.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(cmd)
		if err != nil {
			return err
		}

		formatter, err := formats.New(output, os.Stdout)
		if err != nil {
			return err
		}
		formatter.SetSchema(datasetsSchema)
		for _, ds := range cfg.DataSources {
			if err := formatter.Write([]octofetch.Value{octofetch.NewString(ds.Name), octofetch.NewString(ds.Type)}); err != nil {
				return err
			}
		}
		return formatter.Close()
	},
}

var describeSchema = octofetch.NewSchema(
	octofetch.Field{Name: "name", Type: octofetch.String, Role: octofetch.RoleIdentifier},
	octofetch.Field{Name: "type", Type: octofetch.String, Role: octofetch.RoleAttribute},
	octofetch.Field{Name: "role", Type: octofetch.String, Role: octofetch.RoleAttribute},
)

var describeCmd = &cobra.Command{
	Use:   "describe <dataset>",
	Args:  cobra.ExactArgs(1),
	Short: "Print the schema of a dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := readConfig(cmd)
		if err != nil {
			return err
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

		formatter, err := formats.New(output, os.Stdout)
		if err != nil {
			return err
		}
		formatter.SetSchema(describeSchema)
		for _, field := range dataset.Schema().Fields {
			if err := formatter.Write([]octofetch.Value{
				octofetch.NewString(field.Name),
				octofetch.NewString(field.Type.String()),
				octofetch.NewString(field.Role.String()),
			}); err != nil {
				return err
			}
		}
		return formatter.Close()
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(describeCmd)
}
