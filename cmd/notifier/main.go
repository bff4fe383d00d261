package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/savora-food/api/internal/config"
	"github.com/savora-food/api/internal/notify"
)

// notifier consumes admin status events and e-mails the affected admin.
func main() {
	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required")
	}
	if cfg.SMTP.Host == "" {
		log.Fatal("SMTP_HOST is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := &notify.SMTPMailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}

	consumer, err := notify.NewConsumer(cfg.AMQPURL, mailer)
	if err != nil {
		log.Fatalf("Unable to start consumer: %v", err)
	}
	defer consumer.Close()

	log.Printf("Waiting for %s events", notify.RoutingAdminStatusChanged)
	if err := consumer.Run(ctx); err != nil {
		log.Printf("ERROR: consumer stopped: %v", err)
	}
	log.Println("Notifier stopped")
}
