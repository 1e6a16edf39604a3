package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/viant/imgsim/config"
	"github.com/viant/imgsim/embed"
	"github.com/viant/imgsim/journal"
	"github.com/viant/imgsim/service"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}
	root := &cobra.Command{
		Use:          "imgsim",
		Short:        "Image similarity index",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = config.NewLogger(cfg.Log, cmd.ErrOrStderr())
			slog.SetDefault(a.logger)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("dataset", "data", "image dataset directory")
	flags.String("index-dir", "model_data", "index directory")
	flags.String("provider", "colorhist", "embedding provider (colorhist, openai)")
	flags.String("journal", "builds.db", "build journal database (empty disables)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	a.bind(flags.Lookup("dataset"), "dataset")
	a.bind(flags.Lookup("index-dir"), "index_dir")
	a.bind(flags.Lookup("provider"), "embedding.provider")
	a.bind(flags.Lookup("journal"), "journal.path")
	a.bind(flags.Lookup("log-level"), "log.level")

	root.AddCommand(
		newIndexCmd(a),
		newQueryCmd(a),
		newCheckCmd(a),
		newServeCmd(a),
		newBuildsCmd(a),
	)
	return root
}

func (a *app) bind(flag *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// openJournal returns nil when the journal is disabled.
func (a *app) openJournal(ctx context.Context) (*journal.Journal, error) {
	if a.cfg.Journal.Path == "" {
		return nil, nil
	}
	return journal.Open(ctx, a.cfg.Journal.Path)
}

func (a *app) newService(j *journal.Journal) (*service.Service, error) {
	provider, err := embed.New(a.cfg.EmbedConfig())
	if err != nil {
		return nil, err
	}
	opts := []service.Option{
		service.WithProvider(provider),
		service.WithMinScore(a.cfg.Server.MinScore),
		service.WithWorkers(a.cfg.Build.Workers),
		service.WithLogger(a.logger),
	}
	if j != nil {
		opts = append(opts, service.WithRecorder(j))
	}
	return service.New(opts...)
}
