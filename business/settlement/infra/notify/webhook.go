// Package notify delivers merchant webhooks and operator chat alerts.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/httpclient"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	tracerName     = "github.com/fd1az/paybridge/business/settlement/infra/notify"
	defaultTimeout = 5 * time.Second
)

var _ app.Notifier = (*Webhook)(nil)

// Webhook posts status notifications to merchant URLs.
type Webhook struct {
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewWebhook creates a merchant notifier. Requests time out after timeout.
func NewWebhook(timeout time.Duration, log logger.LoggerInterface) (*Webhook, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tracer := otel.Tracer(tracerName)
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("merchant_webhook"),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{"User-Agent": "paybridge-webhook/1"}),
	)
	if err != nil {
		return nil, err
	}
	return &Webhook{client: client, logger: log, tracer: tracer}, nil
}

// Notify implements app.Notifier. Any non-2xx answer is a failure.
func (w *Webhook) Notify(ctx context.Context, webhookURL string, n domain.Notification) error {
	ctx, span := w.tracer.Start(ctx, "notify.webhook", trace.WithAttributes(
		attribute.String("status_type", string(n.StatusType)),
		attribute.String("final_status", string(n.FinalStatus)),
	))
	defer span.End()

	resp, err := w.client.NewRequestWithOptions(
		httpclient.WithEndpoint("merchant"),
		httpclient.WithResponseErrorHandler(statusError),
	).
		SetBody(n).
		Post(ctx, webhookURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook")
		return apperror.New(apperror.CodeWebhookFailed, apperror.WithCause(err), apperror.WithContext(n.TransactionHash))
	}

	w.logger.Debug(ctx, "merchant notified",
		"tx_hash", n.TransactionHash, "status_type", n.StatusType, "final_status", n.FinalStatus, "http_status", resp.StatusCode)
	return nil
}

func statusError(status int, body []byte) error {
	if status < 300 {
		return nil
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Errorf("http %d: %s", status, body)
}
