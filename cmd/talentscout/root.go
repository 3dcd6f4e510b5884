package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/config"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/questions"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "talentscout"

// cli carries the state shared by the subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	rootCmd := &cobra.Command{
		Use:          app,
		Short:        "TalentScout is a scripted hiring assistant that screens candidates over chat",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "a YAML config file")
	flags.Bool("log-json", false, "json format for logging")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("state-dir", config.DefaultStateDir, "state directory for TalentScout data (overrides $TALENTSCOUT_STATE_DIR)")
	flags.String("db-dsn", "", "session store DSN: SQLite path, postgres:// or redis:// URL, memory:// (overrides $TALENTSCOUT_DB_DSN or $DATABASE_URL)")
	flags.String("redis-addr", "", "Redis address for the session store (overrides $TALENTSCOUT_REDIS_ADDR)")
	flags.String("question-bank", "", "YAML question bank replacing the built-in one")
	flags.Duration("composing-delay", 0, "assistant typing delay (default 1.5s)")

	c.v.BindPFlag("log_json", flags.Lookup("log-json"))
	c.v.BindPFlag("log_level", flags.Lookup("log-level"))
	c.v.BindPFlag("state_dir", flags.Lookup("state-dir"))
	c.v.BindPFlag("db_dsn", flags.Lookup("db-dsn"))
	c.v.BindPFlag("redis_addr", flags.Lookup("redis-addr"))
	c.v.BindPFlag("question_bank", flags.Lookup("question-bank"))
	c.v.BindPFlag("composing_delay", flags.Lookup("composing-delay"))

	rootCmd.AddCommand(newServeCmd(c), newChatCmd(c), newSessionsCmd(c))
	return rootCmd
}

// load reads .env, the config file and the environment, then installs the logger.
func (c *cli) load(logOut io.Writer) error {
	config.LoadDotEnv()
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	initializeLogger(cfg, logOut)
	return nil
}

// initializeLogger installs the process-wide slog logger.
func initializeLogger(cfg *config.Config, w io.Writer) {
	level, _ := config.ParseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openStore selects the session backend: Redis when redis_addr is set, otherwise
// whatever db_dsn addresses.
func openStore(ctx context.Context, cfg *config.Config) (store.SessionStore, error) {
	if cfg.RedisAddr != "" {
		rs := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		slog.Info("openStore: using redis session store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return rs, nil
	}
	st, err := store.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	slog.Info("openStore: using session store", "driver", store.DetectDSNType(cfg.DBDSN))
	return st, nil
}

func loadQuestionBank(path string) (questions.Bank, error) {
	if path == "" {
		return questions.DefaultBank(), nil
	}
	bank, err := questions.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}
	slog.Info("loadQuestionBank: custom bank loaded", "path", path, "skills", len(bank)-1)
	return bank, nil
}
