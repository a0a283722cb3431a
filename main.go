package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/wardenbot/internal/bot"
	"github.com/iamwavecut/wardenbot/internal/config"
	"github.com/iamwavecut/wardenbot/internal/db/sqlite"
	"github.com/iamwavecut/wardenbot/internal/handlers/chat"
	"github.com/iamwavecut/wardenbot/internal/handlers/moderation"
	"github.com/iamwavecut/wardenbot/internal/infra"
	"github.com/iamwavecut/wardenbot/internal/ledger"
	"github.com/iamwavecut/wardenbot/internal/lifecycle"
	"github.com/iamwavecut/wardenbot/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.WdnFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Init(cfg.MetricsAddr)

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()

	dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "warden.db")
	if err != nil {
		// The one unrecoverable startup failure: without a persistence
		// substrate the ledger cannot guarantee durability.
		log.WithError(err).Fatalln("cant initialize persistence")
	}
	defer func() { _ = dbClient.Close() }()

	warnLedger := ledger.New(dbClient, cfg.Moderation.WarnTTL)
	if err := warnLedger.Load(ctx); err != nil {
		log.WithError(err).Fatalln("cant load warning ledger")
	}

	service := bot.NewService(botAPI, dbClient, cfg)
	bot.RegisterUpdateHandler("moderation", moderation.NewModerator(service, warnLedger, cfg.Moderation))
	bot.RegisterUpdateHandler("gatekeeper", chat.NewGatekeeper(service))

	runtime := lifecycle.NewRuntime(
		moderation.NewSweeper(warnLedger, cfg.Moderation.SweepInterval),
	)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start background components")
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Error("cant stop background components")
		}
	}()

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updateProcessor := bot.NewUpdateProcessor(service)
	updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var loopErr error
		infra.GoRecoverable(-1, "process_updates", func() {
			for {
				select {
				case err := <-errorChan:
					loopErr = errors.WithMessage(err, "bot api get updates error")
					return
				case update := <-updateChan:
					done := observability.StartUpdateProcessing()
					if err := updateProcessor.Process(runCtx, &update); err != nil {
						done("error")
						log.WithError(err).Errorln("cant process update")
						continue
					}
					done("ok")
				case <-runCtx.Done():
					loopErr = runCtx.Err()
					return
				}
			}
		})
		return loopErr
	})
	g.Go(func() error {
		select {
		case <-infra.MonitorExecutable(runCtx):
			return errors.New("executable file was modified")
		case <-runCtx.Done():
			return runCtx.Err()
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Errorln("no more updates")
	}
}
