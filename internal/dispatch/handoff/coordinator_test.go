package handoff

import (
	"context"
	"errors"
	"testing"

	"github.com/openmms/mmsd/internal/core/domain"
)

type fakeAgent struct {
	token    string
	accepted bool
	err      error
	offers   int
}

func (a *fakeAgent) Offer(_ context.Context, _ *domain.Request) (string, bool, error) {
	a.offers++
	return a.token, a.accepted, a.err
}

type memRegistry struct {
	m map[string]*domain.Request
}

func newMemRegistry() *memRegistry { return &memRegistry{m: make(map[string]*domain.Request)} }

func (r *memRegistry) Put(_ context.Context, token string, req *domain.Request) error {
	r.m[token] = req
	return nil
}

func (r *memRegistry) Get(_ context.Context, token string) (*domain.Request, error) {
	req, ok := r.m[token]
	if !ok {
		return nil, ErrNotFound
	}
	return req, nil
}

func (r *memRegistry) Remove(_ context.Context, token string) error {
	delete(r.m, token)
	return nil
}

type fakeDispatcher struct {
	enqueued []*domain.Request
}

func (d *fakeDispatcher) Enqueue(req *domain.Request) { d.enqueued = append(d.enqueued, req) }

func req(kind domain.Kind) *domain.Request {
	return &domain.Request{TransactionID: "tx-1", Kind: kind}
}

func TestIntercept_AcceptedParksRequest(t *testing.T) {
	reg := newMemRegistry()
	disp := &fakeDispatcher{}
	c := NewCoordinator(&fakeAgent{token: "42", accepted: true}, reg, disp)

	if !c.Intercept(context.Background(), req(domain.KindSend)) {
		t.Fatal("Intercept = false, want accepted")
	}
	if _, err := reg.Get(context.Background(), "42"); err != nil {
		t.Errorf("request not registered under token: %v", err)
	}
	if len(disp.enqueued) != 0 {
		t.Error("accepted request must not be dispatched before resume")
	}
}

func TestIntercept_DeclinedRunsImmediately(t *testing.T) {
	tests := []struct {
		name  string
		agent *fakeAgent
	}{
		{"agent declines", &fakeAgent{accepted: false}},
		{"agent accepts without token", &fakeAgent{accepted: true, token: ""}},
		{"offer errors", &fakeAgent{err: errors.New("broadcast failed")}},
	}

	for _, tt := range tests {
		c := NewCoordinator(tt.agent, newMemRegistry(), &fakeDispatcher{})
		if c.Intercept(context.Background(), req(domain.KindSend)) {
			t.Errorf("%s: Intercept = true, want declined", tt.name)
		}
	}
}

func TestIntercept_NoAgent(t *testing.T) {
	c := NewCoordinator(nil, newMemRegistry(), &fakeDispatcher{})
	if c.Intercept(context.Background(), req(domain.KindSend)) {
		t.Error("Intercept = true without an agent configured")
	}
}

func TestResume_RedispatchesAndUnregisters(t *testing.T) {
	reg := newMemRegistry()
	disp := &fakeDispatcher{}
	c := NewCoordinator(&fakeAgent{token: "42", accepted: true}, reg, disp)

	r := req(domain.KindSend)
	if !c.Intercept(context.Background(), r) {
		t.Fatal("Intercept failed")
	}

	c.Resume(context.Background(), "42", domain.KindSend)

	if len(disp.enqueued) != 1 || disp.enqueued[0] != r {
		t.Fatalf("enqueued = %v, want the parked request", disp.enqueued)
	}
	if _, err := reg.Get(context.Background(), "42"); !errors.Is(err, ErrNotFound) {
		t.Error("registration not removed after resume")
	}
}

func TestResume_UnknownTokenIgnored(t *testing.T) {
	disp := &fakeDispatcher{}
	c := NewCoordinator(nil, newMemRegistry(), disp)

	c.Resume(context.Background(), "missing", domain.KindSend)

	if len(disp.enqueued) != 0 {
		t.Error("unknown token must not dispatch anything")
	}
}

func TestResume_KindMismatchKeepsRegistration(t *testing.T) {
	reg := newMemRegistry()
	disp := &fakeDispatcher{}
	c := NewCoordinator(nil, reg, disp)

	r := req(domain.KindSend)
	if err := reg.Put(context.Background(), "42", r); err != nil {
		t.Fatal(err)
	}

	c.Resume(context.Background(), "42", domain.KindDownload)

	if len(disp.enqueued) != 0 {
		t.Error("kind mismatch must not dispatch")
	}
	if _, err := reg.Get(context.Background(), "42"); err != nil {
		t.Error("kind mismatch must leave the registration in place")
	}

	// The correct kind still resumes afterwards.
	c.Resume(context.Background(), "42", domain.KindSend)
	if len(disp.enqueued) != 1 {
		t.Error("registration unusable after ignored mismatch")
	}
}
