package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aclio/aclio/app"
	"github.com/aclio/aclio/planclient"
	"github.com/aclio/aclio/store"
)

const (
	defaultAPIURL = "http://localhost:3001"
	reachTimeout  = 3 * time.Second
)

// cli holds the persistent flags and the lazily opened service.
type cli struct {
	apiURL   string
	storeURI string
	offline  bool
	logLevel string

	log     *zap.Logger
	store   store.Store
	planner *planclient.Client
	svc     *app.Service
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "aclio",
		Short:         "Break goals into steps and keep a streak going",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api", envOr("ACLIO_API_URL", defaultAPIURL), "proxy server base URL")
	root.PersistentFlags().StringVar(&c.storeURI, "store", envOr("ACLIO_STORE", defaultStoreURI()), "local store (path, sqlite://, mysql://, redis://, memory://)")
	root.PersistentFlags().BoolVar(&c.offline, "offline", false, "queue changes without contacting the proxy")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddGroup(
		&cobra.Group{ID: "goals", Title: "Goals:"},
		&cobra.Group{ID: "progress", Title: "Progress:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	root.AddCommand(
		newGoalCmd(c),
		newStepCmd(c),
		newChatCmd(c),
		newBonusCmd(c),
		newStatsCmd(c),
		newAchievementsCmd(c),
		newProfileCmd(c),
		newPremiumCmd(c),
		newQueueCmd(c),
		newDoctorCmd(c),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultStoreURI() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "aclio.db"
	}
	return filepath.Join(dir, "aclio", "aclio.db")
}

func (c *cli) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	level, err := zapcore.ParseLevel(c.logLevel)
	if err != nil {
		level = zapcore.WarnLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	c.log = l
	return l
}

func (c *cli) openStore() (store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	if dir := filepath.Dir(c.storeURI); !strings.Contains(c.storeURI, "://") && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	level := "silent"
	if c.logLevel == "debug" {
		level = "info"
	}
	s, err := store.Open(c.storeURI, store.WithLogLevel(level))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.store = s
	return s, nil
}

func (c *cli) client() *planclient.Client {
	if c.planner == nil {
		c.planner = planclient.New(c.apiURL, planclient.WithLogger(c.logger().Named("planclient")))
	}
	return c.planner
}

// service opens the store and checks the proxy once per invocation.
func (c *cli) service(ctx context.Context) (*app.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	s, err := c.openStore()
	if err != nil {
		return nil, err
	}
	connected := false
	if !c.offline {
		pctx, cancel := context.WithTimeout(ctx, reachTimeout)
		connected = c.client().Reachable(pctx)
		cancel()
	}
	c.svc = app.New(ctx, s, c.client(),
		app.WithLogger(c.logger()),
		app.WithConnected(connected))
	return c.svc, nil
}

func (c *cli) close() error {
	if c.log != nil {
		_ = c.log.Sync()
	}
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	c.svc = nil
	return err
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
