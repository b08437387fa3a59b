package main

import (
	"fedplan/config"
	"fedplan/frontend"
	"fedplan/log"
	"fedplan/plancache"
	goflag "flag"
	"fmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "fedplan",
	Short:         "Plans SQL queries across federated data integrations and predictors.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := log.Init(cmd.Flags()); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load(viper.New(), cmd.Flags())
		return err
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		log.Flush()
	},
}

func init() {
	fs := rootCmd.PersistentFlags()
	config.RegisterFlags(fs)
	log.RegisterFlags(fs)
	fs.AddGoFlagSet(goflag.CommandLine)

	rootCmd.AddCommand(planCmd, replCmd, serveCmd)
}

// newFrontend builds the parse-plan pipeline from the loaded config.
func newFrontend() *frontend.Frontend {
	var fopts []frontend.Option
	if cfg.Cache.Enabled {
		fopts = append(fopts, frontend.WithCache(plancache.New(cfg.Cache.TTL, cfg.Cache.Cleanup)))
	}
	return frontend.New(cfg.Catalog(), cfg.PlannerOptions(), fopts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
