package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/httpclient"
	"github.com/fd1az/paybridge/internal/logger"
)

var _ app.Alerter = (*Chat)(nil)

// chatMessage is the incoming-webhook body understood by Slack and Google Chat.
type chatMessage struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

// Chat posts alerts to an operator chat webhook. Without a URL it only logs.
type Chat struct {
	url     string
	channel string
	client  httpclient.Client
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewChat creates an alerter for webhookURL.
func NewChat(webhookURL, channel string, timeout time.Duration, log logger.LoggerInterface) (*Chat, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tracer := otel.Tracer(tracerName)
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("ops_chat"),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
	)
	if err != nil {
		return nil, err
	}
	return &Chat{url: webhookURL, channel: channel, client: client, logger: log, tracer: tracer}, nil
}

// Alert implements app.Alerter.
func (c *Chat) Alert(ctx context.Context, a domain.Alert) error {
	if c.url == "" {
		c.logger.Warn(ctx, "operator alert (no chat webhook configured)", "text", a.Text)
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "notify.chat")
	defer span.End()

	_, err := c.client.NewRequestWithOptions(
		httpclient.WithEndpoint("chat"),
		httpclient.WithResponseErrorHandler(statusError),
	).
		SetBody(chatMessage{Text: a.Text, Channel: c.channel}).
		Post(ctx, c.url)
	if err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeAlertFailed, apperror.WithCause(err))
	}
	return nil
}
