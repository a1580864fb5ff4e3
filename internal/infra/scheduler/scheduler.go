package scheduler

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job roda uma única vez no horário agendado.
type Job func(ctx context.Context)

type entry struct {
	key   string
	at    time.Time
	job   Job
	index int
}

// jobHeap é um min-heap por horário; index mantém a posição para heap.Fix/Remove.
type jobHeap []*entry

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler guarda jobs one-shot chaveados. Existe no máximo um job pendente
// por chave: agendar de novo na mesma chave substitui o anterior.
type Scheduler struct {
	log *slog.Logger

	mu    sync.Mutex
	queue jobHeap
	byKey map[string]*entry

	wake    chan struct{}
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	jobs    sync.WaitGroup
}

func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		log:   log,
		byKey: make(map[string]*entry),
		wake:  make(chan struct{}, 1),
	}
}

// Schedule registra job para rodar em at. Devolve true se substituiu um job pendente.
func (s *Scheduler) Schedule(key string, at time.Time, job Job) bool {
	s.mu.Lock()
	replaced := false
	if e, ok := s.byKey[key]; ok {
		e.at = at
		e.job = job
		heap.Fix(&s.queue, e.index)
		replaced = true
	} else {
		e := &entry{key: key, at: at, job: job}
		heap.Push(&s.queue, e)
		s.byKey[key] = e
	}
	s.mu.Unlock()

	s.signal()
	return replaced
}

// Cancel remove o job pendente da chave. Devolve false se não havia nenhum.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	e, ok := s.byKey[key]
	if ok {
		heap.Remove(&s.queue, e.index)
		delete(s.byKey, key)
	}
	s.mu.Unlock()

	if ok {
		s.signal()
	}
	return ok
}

func (s *Scheduler) Pending(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byKey[key]
	if !ok {
		return time.Time{}, false
	}
	return e.at, true
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Start sobe o loop. Devolve false se já estava rodando.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go s.loop(ctx)

	s.log.Info("scheduler de lembretes iniciado")
	return true
}

// Stop para o loop e espera os jobs em execução. Jobs pendentes continuam na fila.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return false
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.jobs.Wait()
	s.running.Store(false)

	s.log.Info("scheduler de lembretes parado")
	return true
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait, ok := s.runDue(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if ok {
			timer.Reset(wait)
		}

		var fire <-chan time.Time
		if ok {
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-fire:
		}
	}
}

// runDue dispara tudo que venceu e devolve quanto falta para o próximo job.
func (s *Scheduler) runDue(ctx context.Context) (time.Duration, bool) {
	now := time.Now()

	s.mu.Lock()
	var due []*entry
	for len(s.queue) > 0 && !s.queue[0].at.After(now) {
		e := heap.Pop(&s.queue).(*entry)
		delete(s.byKey, e.key)
		due = append(due, e)
	}
	var (
		wait time.Duration
		ok   bool
	)
	if len(s.queue) > 0 {
		wait = s.queue[0].at.Sub(now)
		ok = true
	}
	s.mu.Unlock()

	for _, e := range due {
		s.jobs.Add(1)
		go func(e *entry) {
			defer s.jobs.Done()
			s.safeRun(ctx, e)
		}(e)
	}
	return wait, ok
}

func (s *Scheduler) safeRun(ctx context.Context, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic em job agendado recuperado", "key", e.key, "panic", r)
		}
	}()

	start := time.Now()
	e.job(context.WithoutCancel(ctx))
	s.log.Info("job agendado executado", "key", e.key, "duration_ms", time.Since(start).Milliseconds())
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
