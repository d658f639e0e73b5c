package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"

	"crontide/internal/config"
	"crontide/internal/executor"
	"crontide/internal/registry"
	"crontide/internal/scheduler"
	"crontide/internal/storage"
	logx "crontide/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./crontide.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	boot := logx.NewConsole("info")

	mgr := config.NewManager(cfgPath, boot)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(cfg.Logging.ToLogx())
	defer logSvc.Close()

	storeCfg, err := cfg.Storage.ToStorage()
	if err != nil {
		return err
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	execCfg, err := cfg.Executor.ToExecutor()
	if err != nil {
		return err
	}
	exec := executor.New(execCfg, log.With(logx.String("comp", "executor")), store)
	table := registry.New(log.With(logx.String("comp", "registry")))
	sched := scheduler.New(cfg.Scheduler.ToScheduler(), table, exec, log.With(logx.String("comp", "scheduler")))

	config.Reconcile(sched, cfg.Jobs, log)

	exec.Start(ctx)
	sched.Start(ctx)

	// Hot reload: logging and jobs apply live; timezone or granularity changes
	// need a restart and are logged as such.
	prev := cfg
	mgr.OnReload = func(next *config.Config) {
		logSvc.Apply(next.Logging.ToLogx())
		config.Reconcile(sched, next.Jobs, log)
		if next.Scheduler != prev.Scheduler || next.Executor != prev.Executor {
			log.Warn("scheduler/executor settings changed; restart to apply")
		}
		prev = next
	}
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Any("err", err))
		}
	}()

	_, _ = sdnotify.SdNotify(false, sdnotify.SdNotifyReady)
	log.Info("crontide up", logx.String("config", cfgPath), logx.Int("jobs", table.Len()))

	<-ctx.Done()
	_, _ = sdnotify.SdNotify(false, sdnotify.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	sched.Stop(stopCtx)
	exec.Stop(stopCtx)
	return nil
}
