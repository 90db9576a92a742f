package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type WebhookOptions struct {
	Host           string
	Port           int
	Path           string
	PublicURL      string
	MaxConnections int
	Logger         *slog.Logger
}

// WebhookServer receives updates pushed by Telegram instead of polling.
type WebhookServer struct {
	api     *Client
	handler UpdateHandler
	opts    WebhookOptions
	logger  *slog.Logger
}

func NewWebhookServer(api *Client, handler UpdateHandler, opts WebhookOptions) (*WebhookServer, error) {
	if strings.TrimSpace(opts.PublicURL) == "" {
		return nil, fmt.Errorf("telegram webhook: public URL is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8443
	}
	if opts.Path == "" {
		opts.Path = "/webhook"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WebhookServer{api: api, handler: handler, opts: opts, logger: opts.Logger}, nil
}

// Run registers the webhook, serves until ctx is cancelled, then removes
// the webhook again.
func (s *WebhookServer) Run(ctx context.Context) error {
	url := strings.TrimRight(s.opts.PublicURL, "/") + s.opts.Path
	if err := s.api.SetWebhook(ctx, url, s.opts.MaxConnections); err != nil {
		return fmt.Errorf("telegram webhook: register: %w", err)
	}
	s.logger.Info("telegram_webhook_set", "url", url)

	mux := http.NewServeMux()
	mux.HandleFunc(s.opts.Path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var up Update
		if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
			s.logger.Warn("telegram_webhook_bad_payload", "error", err.Error())
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.logger.Debug("telegram_webhook_update",
			"request_id", uuid.NewString(),
			"update_id", up.UpdateID,
		)
		s.handler(r.Context(), up)
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.logger.Info("telegram_webhook_listening", "addr", srv.Addr, "path", s.opts.Path)

	select {
	case err := <-errCh:
		return fmt.Errorf("telegram webhook: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.api.DeleteWebhook(cleanupCtx); err != nil {
		s.logger.Warn("telegram_webhook_delete_failed", "error", err.Error())
	} else {
		s.logger.Info("telegram_webhook_deleted")
	}
	return ctx.Err()
}
