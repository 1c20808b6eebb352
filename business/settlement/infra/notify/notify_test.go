package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
)

// recordingLogger counts warnings.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (l *recordingLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (l *recordingLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
func (l *recordingLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (l *recordingLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (l *recordingLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (l *recordingLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (l *recordingLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

func TestWebhook_PostsNotification(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w, err := NewWebhook(time.Second, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	n := domain.Notification{
		TransactionHash:   "0xabc",
		FinalStatus:       domain.StatusSuccessful,
		StatusType:        domain.StageDestination,
		DestinationTxHash: "0xdef",
	}
	if err := w.Notify(context.Background(), srv.URL+"/hooks/paybridge", n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got["statusType"] != "destination" || got["finalStatus"] != "successful" || got["transactionHash"] != "0xabc" {
		t.Errorf("body = %v", got)
	}
}

func TestWebhook_NonSuccessIsError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		w, err := NewWebhook(time.Second, logger.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		err = w.Notify(context.Background(), srv.URL, domain.Notification{TransactionHash: "0xabc"})
		if !apperror.IsCode(err, apperror.CodeWebhookFailed) {
			t.Errorf("status %d: err = %v, want WebhookFailed", status, err)
		}
		srv.Close()
	}
}

func TestChat_PostsText(t *testing.T) {
	var got chatMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	c, err := NewChat(srv.URL, "#payments-ops", time.Second, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Alert(context.Background(), domain.Alert{Text: "tx 0xabc dead-lettered"}); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if got.Text != "tx 0xabc dead-lettered" || got.Channel != "#payments-ops" {
		t.Errorf("message = %+v", got)
	}
}

func TestChat_WithoutURLOnlyLogs(t *testing.T) {
	log := &recordingLogger{}
	c, err := NewChat("", "", 0, log)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Alert(context.Background(), domain.Alert{Text: "hello"}); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if len(log.warns) != 1 {
		t.Errorf("warnings = %d, want 1", len(log.warns))
	}
}

func TestChat_FailureIsAlertFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewChat(srv.URL, "", time.Second, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Alert(context.Background(), domain.Alert{Text: "x"}); !apperror.IsCode(err, apperror.CodeAlertFailed) {
		t.Errorf("err = %v, want AlertFailed", err)
	}
}
