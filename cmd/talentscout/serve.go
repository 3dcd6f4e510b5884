package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/api"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/config"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/flow"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/lockfile"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/messaging"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/metrics"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/persist"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/scheduler"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/twiliowhatsapp"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/whatsapp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and, optionally, a WhatsApp chat channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), c.cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("api-addr", config.DefaultAPIAddr, "API server address (overrides $TALENTSCOUT_API_ADDR)")
	flags.String("channel", config.ChannelNone, "chat channel: none, whatsapp or twilio")
	flags.String("qr-output", "", "path to write the WhatsApp login QR code")
	flags.Bool("numeric-code", false, "print a numeric login code instead of a QR code")
	flags.String("whatsapp-db-dsn", "", "whatsmeow device store DSN (defaults to a SQLite file in the state dir)")
	flags.String("twilio-webhook-url", "", "public webhook URL used to check Twilio request signatures")

	c.v.BindPFlag("api_addr", flags.Lookup("api-addr"))
	c.v.BindPFlag("channel", flags.Lookup("channel"))
	c.v.BindPFlag("qr_output", flags.Lookup("qr-output"))
	c.v.BindPFlag("numeric_code", flags.Lookup("numeric-code"))
	c.v.BindPFlag("whatsapp_db_dsn", flags.Lookup("whatsapp-db-dsn"))
	c.v.BindPFlag("twilio_webhook_url", flags.Lookup("twilio-webhook-url"))
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	lock, err := lockfile.AcquireLock(cfg.StateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	bank, err := loadQuestionBank(cfg.QuestionBank)
	if err != nil {
		return err
	}

	m := metrics.New()
	worker := persist.NewWorker(st, persist.WithQueueSize(cfg.PersistQueueSize), persist.WithMetrics(m))
	engine := flow.NewEngine(
		flow.WithQuestionBank(bank),
		flow.WithComposingDelay(cfg.ComposingDelay),
		flow.WithSink(worker),
		flow.WithMetrics(m),
	)
	registry := flow.NewRegistry(engine)

	if cfg.IdleTTL > 0 {
		sched := scheduler.NewScheduler()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				slog.Warn("runServe: scheduler did not stop in time", "error", err)
			}
		}()
		err := sched.AddJob("sweep-idle-conversations", cfg.SweepSchedule, func() {
			sweepIdle(registry, worker, cfg.IdleTTL)
		})
		if err != nil {
			return err
		}
	}

	apiOpts := []api.Option{
		api.WithAddr(cfg.APIAddr),
		api.WithMetrics(m),
		api.WithSessionIDs(worker),
	}
	svc, err := buildChannel(ctx, cfg)
	if err != nil {
		return err
	}
	if svc != nil {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s channel: %w", cfg.Channel, err)
		}
	}
	if tw, ok := svc.(*messaging.TwilioService); ok {
		apiOpts = append(apiOpts, api.WithTwilioWebhook(http.HandlerFunc(tw.WebhookHandler)))
	}
	server := api.NewServer(st, registry, apiOpts...)

	// the worker outlives the producers so queued intents still reach the store
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if svc != nil {
		router := messaging.NewConversationRouter(svc, registry)
		g.Go(func() error {
			<-gctx.Done()
			return svc.Stop()
		})
		g.Go(func() error {
			return router.Run(gctx)
		})
	}
	slog.Info("runServe: TalentScout started", "addr", cfg.APIAddr, "channel", cfg.Channel)

	err = g.Wait()
	stopWorker()
	<-workerDone
	if err != nil {
		slog.Error("runServe: stopped with error", "error", err)
		return err
	}
	slog.Info("runServe: shutdown complete")
	return nil
}

// sweepIdle drops conversations idle longer than ttl together with their session handles.
func sweepIdle(registry *flow.Registry, worker *persist.Worker, ttl time.Duration) {
	for _, id := range registry.Sweep(ttl, time.Now()) {
		worker.Forget(persist.Handle(id))
	}
}

// buildChannel connects the configured chat channel. It returns nil for ChannelNone.
func buildChannel(ctx context.Context, cfg *config.Config) (messaging.Service, error) {
	switch cfg.Channel {
	case config.ChannelWhatsApp:
		var waOpts []whatsapp.Option
		waOpts = append(waOpts, whatsapp.WithDBDSN(cfg.WhatsAppDBDSN))
		if cfg.QROutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(cfg.QROutput))
		}
		if cfg.NumericCode {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(ctx, waOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	case config.ChannelTwilio:
		client, err := twiliowhatsapp.NewClient(
			twiliowhatsapp.WithAccountSID(cfg.TwilioAccountSID),
			twiliowhatsapp.WithAuthToken(cfg.TwilioAuthToken),
			twiliowhatsapp.WithFromWhats(cfg.TwilioFromNumber),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		var twOpts []messaging.TwilioOption
		if cfg.TwilioWebhookURL != "" {
			twOpts = append(twOpts, messaging.WithSignatureValidation(cfg.TwilioAuthToken, cfg.TwilioWebhookURL))
		} else {
			slog.Warn("buildChannel: twilio_webhook_url not set, webhook signatures are not checked")
		}
		return messaging.NewTwilioService(client, twOpts...), nil
	default:
		return nil, nil
	}
}
