package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sokphirun99/Telegrambot-khmer/bot"
	"github.com/Sokphirun99/Telegrambot-khmer/catalog"
	"github.com/Sokphirun99/Telegrambot-khmer/internal/logutil"
	"github.com/Sokphirun99/Telegrambot-khmer/internal/proclock"
	"github.com/Sokphirun99/Telegrambot-khmer/store"
	"github.com/Sokphirun99/Telegrambot-khmer/telegram"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (long polling by default, webhook with --telegram-mode=webhook)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			token := strings.TrimSpace(flagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
			}

			dataDir := strings.TrimSpace(flagOrViperString(cmd, "data-dir", "storage.data_dir"))
			if dataDir == "" {
				dataDir = "./data"
			}

			lock := proclock.New(dataDir, logger)
			if err := lock.Acquire(); err != nil {
				if errors.Is(err, proclock.ErrAlreadyRunning) {
					logger.Error("instance_already_running", "error", err.Error())
				}
				return err
			}
			defer lock.Release()

			st := store.New(dataDir, store.Options{
				FlushInterval: flagOrViperDuration(cmd, "flush-interval", "storage.flush_interval"),
				WriteThrough:  flagOrViperBool(cmd, "write-through", "storage.write_through"),
				Logger:        logger,
			})
			if err := st.Load(); err != nil {
				return fmt.Errorf("load data dir %s: %w", dataDir, err)
			}
			st.StartAutoFlush()

			cat, err := catalog.Load()
			if err != nil {
				return err
			}

			session := bot.NewSession(st, cat, logger)

			api := telegram.NewClient(
				&http.Client{Timeout: 90 * time.Second},
				viper.GetString("telegram.base_url"),
				token,
			)

			startupCtx, cancelStartup := context.WithTimeout(cmd.Context(), 15*time.Second)
			me, err := api.GetMe(startupCtx)
			cancelStartup()
			if err != nil {
				_ = st.Close()
				return fmt.Errorf("telegram getMe: %w", err)
			}
			logger.Info("telegram_start", "bot_id", me.ID, "username", me.Username)

			handler := updateHandler(api, session, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mode := strings.ToLower(strings.TrimSpace(viper.GetString("telegram.mode")))
			var runErr error
			switch mode {
			case "", "polling":
				poller := telegram.NewPoller(api, handler, telegram.PollerOptions{
					Timeout:  viper.GetDuration("telegram.poll_timeout"),
					Limit:    flagOrViperInt(cmd, "poll-limit", "telegram.poll_limit"),
					RetryMax: viper.GetInt("telegram.poll_retry_max"),
					Logger:   logger,
				})
				runErr = poller.Run(ctx)
			case "webhook":
				server, err := telegram.NewWebhookServer(api, handler, telegram.WebhookOptions{
					Host:           viper.GetString("telegram.webhook.host"),
					Port:           flagOrViperInt(cmd, "webhook-port", "telegram.webhook.port"),
					Path:           viper.GetString("telegram.webhook.path"),
					PublicURL:      viper.GetString("telegram.webhook.public_url"),
					MaxConnections: viper.GetInt("telegram.webhook.max_connections"),
					Logger:         logger,
				})
				if err != nil {
					_ = st.Close()
					return err
				}
				runErr = server.Run(ctx)
			default:
				_ = st.Close()
				return fmt.Errorf("unknown telegram.mode: %s (use polling or webhook)", mode)
			}

			// Shutdown order matters: transport first so no new events
			// arrive, then the final flush, then the lock.
			if err := st.Close(); err != nil {
				logger.Error("store_close_failed", "error", err.Error())
			}
			lock.Release()

			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			logger.Info("shutdown_complete")
			return nil
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot API token.")
	cmd.Flags().String("data-dir", "./data", "Directory for persisted state and the instance lock.")
	cmd.Flags().Duration("flush-interval", 5*time.Minute, "Interval between background flushes to disk.")
	cmd.Flags().Bool("write-through", true, "Flush after every mutation in addition to the timer.")
	cmd.Flags().Int("poll-limit", 100, "Max updates fetched per polling request.")
	cmd.Flags().Int("webhook-port", 8443, "Listen port in webhook mode.")
	cmd.Flags().String("telegram-mode", "", "Transport: polling|webhook (overrides telegram.mode).")
	_ = viper.BindPFlag("telegram.mode", cmd.Flags().Lookup("telegram-mode"))

	return cmd
}

// updateHandler adapts a Telegram update to the session pipeline and sends
// the reply back. Non-message updates and bot senders are skipped.
func updateHandler(api *telegram.Client, session *bot.Session, logger *slog.Logger) telegram.UpdateHandler {
	return func(ctx context.Context, up telegram.Update) {
		msg := up.Message
		if msg == nil || msg.From == nil || msg.Chat == nil || msg.From.IsBot {
			return
		}
		if strings.TrimSpace(msg.Text) == "" {
			return
		}

		ev := bot.NewEvent(msg.From.ID, msg.Chat.ID, store.Profile{
			FirstName:    msg.From.FirstName,
			LastName:     msg.From.LastName,
			Username:     msg.From.Username,
			LanguageCode: msg.From.LanguageCode,
		}, msg.Text)

		reply, ok := session.HandleEvent(ev)
		if !ok {
			return
		}

		_ = api.SendChatAction(ctx, msg.Chat.ID, "typing")

		opts := &telegram.SendOptions{
			Keyboard:       reply.Keyboard,
			RemoveKeyboard: reply.RemoveKeyboard,
		}
		if err := api.SendMessage(ctx, msg.Chat.ID, reply.Text, opts); err != nil {
			logger.Error("telegram_send_failed",
				"chat_id", msg.Chat.ID,
				"error", err.Error(),
			)
		}
	}
}
