package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/queue"
)

func TestQueue_PublishesPerStage(t *testing.T) {
	mem := queue.NewMemory(queue.RetryPolicy{MaxDeliver: 3}, time.Minute, logger.NewNop())
	defer mem.Close()
	p := New(mem, Subjects{Source: "settlement.source", Destination: "settlement.destination"})

	e := domain.Event{ID: "evt-1", TxHash: "0xabc", Provider: "lifi", FromChain: 1, ToChain: 10}
	ctx := context.Background()
	if err := p.Publish(ctx, domain.StageSource, e); err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(ctx, domain.StageDestination, e); err != nil {
		t.Fatal(err)
	}
	// duplicate inside the window
	if err := p.Publish(ctx, domain.StageDestination, e); err != nil {
		t.Fatal(err)
	}

	src := mem.Published("settlement.source")
	dst := mem.Published("settlement.destination")
	if len(src) != 1 || len(dst) != 1 {
		t.Fatalf("source = %d destination = %d, want 1 each", len(src), len(dst))
	}
	if src[0].ID != "evt-1.source" || dst[0].ID != "evt-1.destination" {
		t.Errorf("ids = %s, %s", src[0].ID, dst[0].ID)
	}
	if dst[0].Header(HeaderStage) != "destination" {
		t.Errorf("stage header = %q", dst[0].Header(HeaderStage))
	}
	var got domain.Event
	if err := json.Unmarshal(dst[0].Data, &got); err != nil || got.TxHash != "0xabc" {
		t.Errorf("payload = %s (%v)", dst[0].Data, err)
	}
}

func TestQueue_UnknownStage(t *testing.T) {
	mem := queue.NewMemory(queue.RetryPolicy{}, 0, logger.NewNop())
	defer mem.Close()
	p := New(mem, Subjects{Source: "settlement.source"})

	err := p.Publish(context.Background(), domain.StageDestination, domain.Event{ID: "evt-1"})
	if !apperror.IsCode(err, apperror.CodePublishFailed) {
		t.Errorf("err = %v, want PublishFailed", err)
	}
}
