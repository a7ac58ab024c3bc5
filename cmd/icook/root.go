package main

import (
	"github.com/spf13/cobra"

	"github.com/icook-app/icook/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "icook",
		Short: "iCook social recipes backend",
		Long: `icook serves the iCook REST API (users, posts, comments and likes)
on top of PostgreSQL.

Configuration is read from a YAML file (--config, ICOOK_CONFIG or
config/icook.yaml), a .env file and environment variables such as
DATABASE_URL, DATABASE_DRIVER, PORT and LOG_LEVEL.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML configuration file")

	cmd.AddCommand(newServeCmd(opts), newMigrateCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}
