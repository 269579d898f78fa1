package supervisor_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/airbrake-proxy/internal/supervisor"
)

type fakeProcess struct {
	pid  int
	exit chan error

	mu      sync.Mutex
	signals []os.Signal
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Wait() error { return <-p.exit }

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	p.exit <- errors.New("signal: terminated")
	return nil
}

func (p *fakeProcess) Signals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]os.Signal(nil), p.signals...)
}

type fakeSpawner struct {
	mu      sync.Mutex
	procs   []*fakeProcess
	spawnFn func(slot int) error
}

func (f *fakeSpawner) Spawn(_ context.Context, slot int) (supervisor.Process, error) {
	if f.spawnFn != nil {
		if err := f.spawnFn(slot); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakeProcess{pid: 1000 + len(f.procs), exit: make(chan error, 1)}
	f.procs = append(f.procs, p)
	return p, nil
}

func (f *fakeSpawner) Procs() []*fakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeProcess(nil), f.procs...)
}

var _ = Describe("Supervisor", func() {
	var (
		spawner *fakeSpawner
		sup     *supervisor.Supervisor
		cancel  context.CancelFunc
		done    chan struct{}
	)

	start := func(workers int) {
		sup = supervisor.New(spawner, supervisor.Config{Workers: workers, SpawnRetryDelay: 10 * time.Millisecond})
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		go func() {
			defer close(done)
			_ = sup.Run(ctx)
		}()
	}

	BeforeEach(func() {
		spawner = &fakeSpawner{}
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("starts one worker per slot", func() {
		start(3)

		Eventually(sup.States).Should(Equal([]supervisor.SlotState{
			supervisor.SlotRunning, supervisor.SlotRunning, supervisor.SlotRunning,
		}))
		Expect(spawner.Procs()).To(HaveLen(3))
	})

	It("replaces a worker that exits", func() {
		start(2)
		Eventually(spawner.Procs).Should(HaveLen(2))

		spawner.Procs()[0].exit <- errors.New("exit status 1")

		Eventually(spawner.Procs).Should(HaveLen(3))
		Eventually(sup.Restarts).Should(Equal(1))
		Eventually(sup.States).Should(Equal([]supervisor.SlotState{supervisor.SlotRunning, supervisor.SlotRunning}))
	})

	It("retries a slot whose spawn failed", func() {
		var mu sync.Mutex
		failures := 2
		spawner.spawnFn = func(int) error {
			mu.Lock()
			defer mu.Unlock()
			if failures > 0 {
				failures--
				return errors.New("fork: resource temporarily unavailable")
			}
			return nil
		}
		start(1)

		Eventually(sup.States).Should(Equal([]supervisor.SlotState{supervisor.SlotRunning}))
		Expect(spawner.Procs()).To(HaveLen(1))
	})

	It("terminates running workers on shutdown without respawning", func() {
		start(2)
		Eventually(sup.States).Should(Equal([]supervisor.SlotState{supervisor.SlotRunning, supervisor.SlotRunning}))

		cancel()
		Eventually(done).Should(BeClosed())

		procs := spawner.Procs()
		Expect(procs).To(HaveLen(2))
		for _, p := range procs {
			Expect(p.Signals()).To(Equal([]os.Signal{syscall.SIGTERM}))
		}
		Expect(sup.States()).To(Equal([]supervisor.SlotState{supervisor.SlotExited, supervisor.SlotExited}))
		Expect(sup.Restarts()).To(BeZero())
	})
})
