package main

import (
	"context"
	"os"

	"timebill/internal/amqp"
	"timebill/internal/cli"
	"timebill/internal/log"
	"timebill/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	if err := cfg.RequireAMQP(); err != nil {
		logger.Error("Notifier needs a broker", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	notifier := worker.NewNotifier(logger)

	logger.Info("Starting timebill-notifier",
		log.FieldExchange, cfg.AMQPExchange,
		log.FieldQueue, cfg.AMQPQueue,
		log.FieldOperation, log.OpStartup)

	err = cli.Run(ctx, logger, cfg.ShutdownTimeout, cli.Service{
		Start: func(ctx context.Context) error {
			return client.ConsumeEntryEvents(ctx, notifier.HandleEntryEvent)
		},
	})
	notifier.LogSummary(context.Background())
	if err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		stop()
		_ = client.Close()
		os.Exit(1)
	}

	logger.Info("Notifier stopped")
}
