package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"

	"github.com/nateberkopec/tasknotifier/internal/config"
	"github.com/nateberkopec/tasknotifier/internal/delivery"
	"github.com/nateberkopec/tasknotifier/internal/logger"
	"github.com/nateberkopec/tasknotifier/internal/persistence"
	"github.com/nateberkopec/tasknotifier/internal/scheduler"
	"github.com/nateberkopec/tasknotifier/internal/service"
)

const logFileName = "tasknotifier.log"

// env is everything a command needs once flags and config are resolved.
type env struct {
	cfg      *config.Config
	dataFile string
	logger   logger.Logger
	service  *service.Service
	history  *persistence.History
}

func isSet(ctx *cli.Context, name string) bool {
	return ctx.IsSet(name) || ctx.GlobalIsSet(name)
}

// setup loads the config, applies global flag overrides and opens the store.
// The catalog is not loaded; callers decide how to treat a load failure.
// When console is set, log lines are also written to stderr.
func (r *Runner) setup(ctx *cli.Context, console bool) (*env, error) {
	path := r.opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(r.Fs, path)
	if err != nil {
		return nil, err
	}

	if isSet(ctx, "interval") {
		if r.opts.interval <= 0 {
			return nil, fmt.Errorf("--interval must be positive, got %s", r.opts.interval)
		}
		cfg.Scheduler.PollInterval = r.opts.interval
	}
	if isSet(ctx, "bell") {
		cfg.Display.Bell = r.opts.bell
	}
	if isSet(ctx, "dedupe") {
		cfg.Scheduler.Deduplicate = r.opts.dedupe
	}

	dataFile := r.opts.dataFile
	if dataFile == "" {
		dataFile = cfg.Storage.DataFile
	}
	if dataFile == "" {
		if dataFile, err = persistence.DefaultPath(); err != nil {
			return nil, err
		}
	}

	e := &env{
		cfg:      cfg,
		dataFile: dataFile,
		logger:   r.openLogger(cfg, dataFile, console),
		history:  persistence.NewHistory(r.Fs, persistence.HistoryPath(dataFile)),
	}
	e.service = service.New(persistence.NewStore(r.Fs, dataFile), r.Fs, e.logger)
	return e, nil
}

func (r *Runner) openLogger(cfg *config.Config, dataFile string, console bool) logger.Logger {
	path := cfg.LogFile
	if path == "" {
		path = filepath.Join(filepath.Dir(dataFile), logFileName)
	}

	var loggers []logger.Logger
	if console {
		loggers = append(loggers, logger.NewStandardLogger(log.New(r.Stderr, "", log.LstdFlags)))
	}
	fileLog, err := logger.NewFileLogger(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "tasknotifier: logging disabled: %v\n", err)
	} else {
		loggers = append(loggers, fileLog)
	}

	switch len(loggers) {
	case 0:
		return logger.NewNopLogger()
	case 1:
		return loggers[0]
	}
	return logger.NewMultiLogger(loggers...)
}

// deliverer returns the test override or the configured backend chain.
func (r *Runner) deliverer(e *env) (scheduler.Deliverer, error) {
	if r.Deliverer != nil {
		return r.Deliverer, nil
	}

	hook := e.cfg.Delivery.Webhook
	token := hook.Token
	if token == "" && hook.URL != "" && hook.TokenKey != "" && r.Keyring != nil {
		secret, err := r.Keyring.Get(hook.TokenKey)
		if err != nil {
			e.logger.Warning("failed to read webhook token from keyring: %v", err)
		}
		token = secret
	}

	backends, err := delivery.Build(e.cfg.Delivery.Backends, delivery.Options{
		AppName: e.cfg.Delivery.AppName,
		Webhook: delivery.WebhookConfig{URL: hook.URL, Token: token, Fs: r.Fs},
	})
	if err != nil {
		return nil, err
	}
	chain := delivery.NewChain(e.logger, backends...)
	e.logger.Info("notification backends: %s", strings.Join(chain.Backends(), ", "))
	return chain, nil
}

func (r *Runner) newScheduler(e *env, source scheduler.Source) (*scheduler.Scheduler, error) {
	d, err := r.deliverer(e)
	if err != nil {
		return nil, err
	}
	imageDir := e.cfg.Storage.ImageDir
	if imageDir == "" {
		imageDir = os.TempDir()
	}
	return scheduler.New(source, d, scheduler.Config{
		Interval:    e.cfg.Scheduler.PollInterval,
		Fs:          r.Fs,
		ImageDir:    imageDir,
		Sound:       e.cfg.Delivery.Sound,
		Deduplicate: e.cfg.Scheduler.Deduplicate,
		Now:         r.Now,
		Logger:      e.logger,
		Recorder:    e.history,
	}), nil
}

// open runs setup and loads the catalog, failing on a load error.
func (r *Runner) open(ctx *cli.Context) (*env, error) {
	e, err := r.setup(ctx, false)
	if err != nil {
		return nil, err
	}
	if err := e.service.Load(); err != nil {
		e.close()
		return nil, fmt.Errorf("loading %s: %w", e.dataFile, err)
	}
	return e, nil
}

func (e *env) close() {
	_ = e.logger.Close()
}
