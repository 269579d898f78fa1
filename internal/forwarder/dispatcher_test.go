package forwarder_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/airbrake-proxy/internal/forwarder"
	"basegraph.app/airbrake-proxy/internal/metrics"
	"basegraph.app/airbrake-proxy/internal/model"
	"basegraph.app/airbrake-proxy/internal/store"
)

type mockForwarder struct {
	forwardFn func(ctx context.Context, report model.Report) model.Classification
}

func (m *mockForwarder) Forward(ctx context.Context, report model.Report) model.Classification {
	return m.forwardFn(ctx, report)
}

var _ = Describe("Dispatcher", func() {
	var (
		recorder *metrics.Recorder
		cs       *mockCorrelationStore
		report   model.Report
	)

	BeforeEach(func() {
		recorder = &metrics.Recorder{}
		cs = &mockCorrelationStore{}
		report = model.Report{ID: "id-1", Path: "/notices", Body: []byte(noticeBody)}
	})

	It("writes the pending record before the airbrake relay runs", func() {
		var seen []setCall
		airbrake := &mockForwarder{forwardFn: func(ctx context.Context, r model.Report) model.Classification {
			seen = cs.Calls()
			_ = cs.Set(ctx, r.ID, "99")
			return model.ClassificationSuccess
		}}
		d := forwarder.NewDispatcher(airbrake, nil, cs, recorder)

		d.Dispatch(context.Background(), report)
		Expect(d.Wait(context.Background())).To(Succeed())

		Expect(seen).To(Equal([]setCall{{ID: "id-1", Value: store.PendingSentinel}}))
		Expect(cs.Calls()).To(Equal([]setCall{
			{ID: "id-1", Value: store.PendingSentinel},
			{ID: "id-1", Value: "99"},
		}))
	})

	It("keeps relaying after the accepting request's context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		var relayErr error
		airbrake := &mockForwarder{forwardFn: func(ctx context.Context, r model.Report) model.Classification {
			<-started
			relayErr = ctx.Err()
			return model.ClassificationSuccess
		}}
		d := forwarder.NewDispatcher(airbrake, nil, cs, recorder)

		d.Dispatch(ctx, report)
		cancel()
		close(started)
		Expect(d.Wait(context.Background())).To(Succeed())
		Expect(relayErr).NotTo(HaveOccurred())
	})

	It("runs both backends independently", func() {
		var mu sync.Mutex
		order := []string{}
		slow := make(chan struct{})
		airbrake := &mockForwarder{forwardFn: func(ctx context.Context, r model.Report) model.Classification {
			<-slow
			mu.Lock()
			order = append(order, "airbrake")
			mu.Unlock()
			return model.ClassificationTimeout
		}}
		sentry := &mockForwarder{forwardFn: func(ctx context.Context, r model.Report) model.Classification {
			mu.Lock()
			order = append(order, "sentry")
			mu.Unlock()
			close(slow)
			return model.ClassificationSuccess
		}}
		d := forwarder.NewDispatcher(airbrake, sentry, cs, recorder)

		d.Dispatch(context.Background(), report)
		Expect(d.Wait(context.Background())).To(Succeed())
		Expect(order).To(Equal([]string{"sentry", "airbrake"}))
	})

	It("recovers from a panicking relay", func() {
		airbrake := &mockForwarder{forwardFn: func(ctx context.Context, r model.Report) model.Classification {
			panic("boom")
		}}
		d := forwarder.NewDispatcher(airbrake, nil, cs, recorder)

		d.Dispatch(context.Background(), report)
		Expect(d.Wait(context.Background())).To(Succeed())
	})

	It("counts a failed pending write and still relays", func() {
		cs.setFn = func(ctx context.Context, id, value string) error { return store.ErrNotFound }
		relayed := false
		airbrake := &mockForwarder{forwardFn: func(ctx context.Context, r model.Report) model.Classification {
			relayed = true
			return model.ClassificationError
		}}
		d := forwarder.NewDispatcher(airbrake, nil, cs, recorder)

		d.Dispatch(context.Background(), report)
		Expect(d.Wait(context.Background())).To(Succeed())
		Expect(relayed).To(BeTrue())
		Expect(recorder.Count(metrics.CorrelationStoreFail)).To(Equal(1))
	})

	It("gives up waiting when the drain deadline passes", func() {
		block := make(chan struct{})
		DeferCleanup(func() { close(block) })
		airbrake := &mockForwarder{forwardFn: func(ctx context.Context, r model.Report) model.Classification {
			<-block
			return model.ClassificationSuccess
		}}
		d := forwarder.NewDispatcher(airbrake, nil, cs, recorder)
		d.Dispatch(context.Background(), report)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(d.Wait(ctx)).To(MatchError(context.DeadlineExceeded))
	})
})
