package app

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	chain "github.com/fd1az/paybridge/business/chain/domain"
	routingApp "github.com/fd1az/paybridge/business/routing/app"
	routing "github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
)

type memRecords struct {
	mu   sync.Mutex
	recs map[string]domain.Record
	err  error
}

func newMemRecords() *memRecords {
	return &memRecords{recs: make(map[string]domain.Record)}
}

func (m *memRecords) Upsert(_ context.Context, seed domain.Record, u domain.Update) (domain.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Record{}, false, m.err
	}
	cur, ok := m.recs[seed.TxHash]
	if !ok {
		cur = seed
	}
	merged, changed := cur.Merge(u, seed.UpdatedAt)
	m.recs[seed.TxHash] = merged
	return merged, changed, nil
}

func (m *memRecords) Get(_ context.Context, txHash string) (domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[txHash]
	if !ok {
		return domain.Record{}, apperror.NotFound(apperror.CodeRecordNotFound, txHash)
	}
	return r, nil
}

func (m *memRecords) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type memLetters struct {
	mu  sync.Mutex
	ids map[string]domain.DeadLetter
}

func (m *memLetters) Insert(_ context.Context, d domain.DeadLetter) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = make(map[string]domain.DeadLetter)
	}
	if _, ok := m.ids[d.ID]; ok {
		return false, nil
	}
	m.ids[d.ID] = d
	return true, nil
}

type sentNotification struct {
	url string
	n   domain.Notification
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, url string, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{url: url, n: n})
	return f.err
}

type published struct {
	stage domain.Stage
	event domain.Event
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, stage domain.Stage, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{stage: stage, event: e})
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []domain.Alert
	err    error
}

func (f *fakeAlerter) Alert(_ context.Context, a domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

// scriptedProbe returns outcomes in order, repeating the last one.
type scriptedProbe struct {
	stage    domain.Stage
	outcomes []domain.Outcome
	errs     []error
	calls    int
}

func (p *scriptedProbe) Stage() domain.Stage { return p.stage }

func (p *scriptedProbe) Check(context.Context, domain.Event) (domain.Outcome, error) {
	i := p.calls
	p.calls++
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if len(p.outcomes) == 0 {
		return domain.Retry, err
	}
	if i >= len(p.outcomes) {
		i = len(p.outcomes) - 1
	}
	return p.outcomes[i], err
}

type fakeReceipts struct {
	chains  map[uint64]bool
	receipt *chain.Receipt
	err     error
	calls   int
}

func (f *fakeReceipts) Supports(id uint64) bool { return f.chains[id] }

func (f *fakeReceipts) Receipt(context.Context, uint64, common.Hash) (*chain.Receipt, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.receipt == nil {
		return nil, chain.ErrReceiptNotFound
	}
	return f.receipt, nil
}

type statusProvider struct {
	status routing.ProviderStatus
	err    error
	reqs   []routing.StatusRequest
}

func (p *statusProvider) Name() string { return "lifi" }

func (p *statusProvider) Quote(context.Context, routing.Route, asset.Amount) (routing.ProviderQuote, error) {
	return routing.ProviderQuote{}, errors.New("not used")
}

func (p *statusProvider) Status(_ context.Context, req routing.StatusRequest) (routing.ProviderStatus, error) {
	p.reqs = append(p.reqs, req)
	return p.status, p.err
}

type fakeResolver struct {
	p routingApp.Provider
}

func (r fakeResolver) Get(name string) (routingApp.Provider, error) {
	if r.p == nil || name != r.p.Name() {
		return nil, apperror.New(apperror.CodeUnknownProvider, apperror.WithContext(name))
	}
	return r.p, nil
}

const (
	srcHash = "0x8f1e3a9d1c0b7e6f5a4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b3a29"
	webhook = "https://merchant.example/hooks/paybridge"
)

func testEvent() domain.Event {
	return domain.Event{
		ID:              "evt-1",
		TxHash:          srcHash,
		RequestID:       "req-1",
		Provider:        "lifi",
		FromChain:       asset.ChainIDEthereum,
		ToChain:         asset.ChainIDArbitrum,
		FromAsset:       "USDT",
		ToAsset:         "USDC",
		FromAddress:     "0x1111111111111111111111111111111111111111",
		ToAddress:       "0x2222222222222222222222222222222222222222",
		FromAmount:      "100.6",
		FromAmountRaw:   "100600000",
		ToAmount:        "100",
		ToAmountRaw:     "100000000",
		PlatformFee:     "0.5",
		ProviderFee:     "0.1",
		MerchantAddress: "0x3333333333333333333333333333333333333333",
		MerchantWebhook: webhook,
	}
}
