package workerpool

import (
	"sync"
	"sync/atomic"
)

// stealingPool is a work-stealing pool sized at construction time. Each
// worker owns a local deque; submissions are distributed round-robin,
// owners pop from the front, and an idle worker steals from the back of
// a sibling's deque before parking.
type stealingPool struct {
	workers []*stealWorker
	next    atomic.Uint64

	// mu/cond guard pending, the count of submitted-but-untaken tasks.
	// Workers park on cond only when pending is zero, so a submission
	// between an empty sweep and the park cannot be missed.
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
}

type stealWorker struct {
	mu    sync.Mutex
	deque []func()
}

// NewStealing returns a work-stealing pool of n workers. n must be
// positive.
func NewStealing(n int) Pool {
	if n <= 0 {
		panic("workerpool: pool size must be positive")
	}
	p := &stealingPool{workers: make([]*stealWorker, n)}
	p.cond = sync.NewCond(&p.mu)
	for i := range p.workers {
		p.workers[i] = &stealWorker{}
	}
	for i := range p.workers {
		go p.run(i)
	}
	return p
}

func (p *stealingPool) Submit(task func()) {
	w := p.workers[p.next.Add(1)%uint64(len(p.workers))]
	w.mu.Lock()
	w.deque = append(w.deque, task)
	w.mu.Unlock()

	p.mu.Lock()
	p.pending++
	p.cond.Signal()
	p.mu.Unlock()
}

// popFront takes the oldest task from the owner's end of the deque.
func (w *stealWorker) popFront() func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.deque) == 0 {
		return nil
	}
	task := w.deque[0]
	w.deque = w.deque[1:]
	return task
}

// stealBack takes the newest task from a sibling's deque.
func (w *stealWorker) stealBack() func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.deque) == 0 {
		return nil
	}
	task := w.deque[len(w.deque)-1]
	w.deque = w.deque[:len(w.deque)-1]
	return task
}

func (p *stealingPool) run(i int) {
	defer func() {
		if r := recover(); r != nil {
			go p.run(i)
		}
	}()

	self := p.workers[i]
	for {
		task := self.popFront()
		for j := 1; task == nil && j < len(p.workers); j++ {
			task = p.workers[(i+j)%len(p.workers)].stealBack()
		}
		if task == nil {
			p.mu.Lock()
			for p.pending == 0 {
				p.cond.Wait()
			}
			p.mu.Unlock()
			continue
		}

		p.mu.Lock()
		p.pending--
		p.mu.Unlock()

		task()
	}
}
