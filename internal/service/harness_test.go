package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"erpadmin/internal/auth"
	"erpadmin/internal/config"
	"erpadmin/internal/lock"
	"erpadmin/internal/metrics"
	"erpadmin/internal/repository"
	"erpadmin/internal/testutil"
	"erpadmin/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type recordedEvent struct {
	Type    string
	Payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Payload: payload})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	db        *gorm.DB
	infra     Infra
	events    *fakePublisher
	registry  *prometheus.Registry
	orders    repository.OrderRepository
	items     repository.InventoryRepository
	defects   repository.DefectRepository
	dispatch  repository.DispatchRepository
	audits    repository.AuditRepository
	taxRules  repository.TaxRuleRepository
	users     repository.UserRepository
	taxSvc    TaxService
	orderSvc  OrderService
	invSvc    InventoryService
	dispSvc   DispatchService
	userSvc   UserService
	auditSvc  AuditService
	tokens    *auth.Tokens
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	reg := prometheus.NewRegistry()
	events := &fakePublisher{}

	h := &harness{
		db:       db,
		events:   events,
		registry: reg,
		orders:   repository.NewOrderRepository(db),
		items:    repository.NewInventoryRepository(db),
		defects:  repository.NewDefectRepository(db),
		dispatch: repository.NewDispatchRepository(db),
		audits:   repository.NewAuditRepository(db),
		taxRules: repository.NewTaxRuleRepository(db),
		users:    repository.NewUserRepository(db),
	}
	h.auditSvc = NewAuditService(h.audits)
	h.infra = Infra{
		Tx:      repository.NewTransactionManager(db),
		Audit:   h.auditSvc,
		Locker:  lock.NewLocal(time.Second),
		Events:  events,
		Metrics: metrics.New(reg),
		Log:     logger.Nop(),
		Now:     func() time.Time { return fixedNow },
	}
	h.taxSvc = NewTaxService(h.infra, h.taxRules)
	h.orderSvc = NewOrderService(h.infra, h.orders, h.taxSvc)
	h.invSvc = NewInventoryService(h.infra, h.items, h.defects)
	h.dispSvc = NewDispatchService(h.infra, h.dispatch, h.items)
	h.tokens = auth.NewTokens(config.JWTConfig{Secret: "test-secret", Issuer: "erpadmin-test", TokenTTL: time.Hour})
	h.userSvc = NewUserService(h.infra, h.users, h.tokens)
	return h
}

// counter reads a single-label counter from the private registry.
func (h *harness) counter(t *testing.T, name, label string) float64 {
	t.Helper()
	families, err := h.registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if len(m.GetLabel()) == 0 || m.GetLabel()[0].GetValue() == label {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func (h *harness) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	_, total, err := h.audits.List(context.Background(), repository.AuditFilter{Action: action}, 1, 1)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	return total
}
