// Command mailer drains the outbound mail queue filled by the server when
// MAIL_TRANSPORT=amqp and delivers each message over SMTP.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/mail"
	"github.com/iliyamo/storefront-auth/internal/queue"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(config.IsProductionEnv(os.Getenv("APP_ENV")))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc := config.LoadMailConfig()
	consumer := &queue.Consumer{
		URL:    mc.AMQPURL,
		Queue:  mc.Queue,
		Sender: mail.NewSMTPSender(mail.SMTPSettingsFrom(mc)),
		Log:    logger.With("component", "mailer"),
	}

	logger.Info(ctx, "mailer started", "queue", mc.Queue, "smtp_host", mc.SMTPHost)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "mailer stopped", "err", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "mailer stopped")
}
