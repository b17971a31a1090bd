// Package concurrency implements the read/write/non-blocking envelope: a
// single lock serialises read and write calls against a wrapped index,
// while IndexURLs is submitted to a bounded worker pool and returns
// immediately. Every read call first drains outstanding async submissions
// so readers observe the effects of every write requested so far.
package concurrency

import (
	"fmt"
	"io"
	"sync"

	"github.com/simsearch/simsearch/internal/simindex"
)

const (
	poolWorkers = 10
	poolQueue   = 64
)

type task func()

// workerPool is a small fixed-size pool of goroutines draining a buffered
// task queue. It has one purpose here: running Envelope's async IndexURLs
// submissions.
type workerPool struct {
	queue chan task
	wg    sync.WaitGroup
}

func newWorkerPool(workers, queueSize int) *workerPool {
	p := &workerPool{queue: make(chan task, queueSize)}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	for t := range p.queue {
		t()
	}
}

// submit enqueues t, returning false if the queue is full. The pool never
// blocks the caller.
func (p *workerPool) submit(t task) bool {
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// Envelope wraps inner with a single reader/writer discipline.
type Envelope struct {
	mu    sync.Mutex
	inner simindex.SimIndex
	pool  *workerPool

	pendingWG  sync.WaitGroup
	errMu      sync.Mutex
	pendingErr error
}

// New wraps inner with a concurrency envelope. Exactly one envelope should
// exist per wrapped index.
func New(inner simindex.SimIndex) *Envelope {
	return &Envelope{inner: inner, pool: newWorkerPool(poolWorkers, poolQueue)}
}

var _ simindex.SimIndex = (*Envelope)(nil)

// drain waits for all outstanding async writes to finish and returns the
// first error any of them produced, clearing it.
func (e *Envelope) drain() error {
	e.pendingWG.Wait()
	e.errMu.Lock()
	err := e.pendingErr
	e.pendingErr = nil
	e.errMu.Unlock()
	return err
}

func (e *Envelope) recordErr(err error) {
	if err == nil {
		return
	}
	e.errMu.Lock()
	if e.pendingErr == nil {
		e.pendingErr = err
	}
	e.errMu.Unlock()
}

// doWrite acquires the lock for the duration of fn.
func (e *Envelope) doWrite(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// doRead drains outstanding async writes, then acquires the lock for the
// duration of fn.
func (e *Envelope) doRead(fn func() error) error {
	if err := e.drain(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// --- NONBLOCKING ---

// IndexURLs submits the fetch-and-index work to the bounded worker pool and
// returns immediately. The submitted task re-enters the envelope's write
// path by acquiring the lock itself, exactly as if IndexURLs had run
// synchronously.
func (e *Envelope) IndexURLs(urls []string) error {
	e.pendingWG.Add(1)
	submitted := e.pool.submit(func() {
		defer e.pendingWG.Done()
		err := e.doWrite(func() error { return e.inner.IndexURLs(urls) })
		e.recordErr(err)
	})
	if !submitted {
		e.pendingWG.Done()
		return fmt.Errorf("concurrency: index_urls: worker pool full")
	}
	return nil
}

// --- WRITE ---

func (e *Envelope) IndexStringBuffers(buffers []simindex.NamedBuffer) error {
	return e.doWrite(func() error { return e.inner.IndexStringBuffers(buffers) })
}

func (e *Envelope) IndexFiles(streams []simindex.NamedStream) error {
	return e.doWrite(func() error { return e.inner.IndexFiles(streams) })
}

func (e *Envelope) IndexFilenames(names []string) error {
	return e.doWrite(func() error { return e.inner.IndexFilenames(names) })
}

func (e *Envelope) DelDocids(ids ...string) error {
	return e.doWrite(func() error { return e.inner.DelDocids(ids...) })
}

func (e *Envelope) LoadStoplist(r io.Reader) error {
	return e.doWrite(func() error { return e.inner.LoadStoplist(r) })
}

func (e *Envelope) SetConfig(key string, value any) error {
	return e.doWrite(func() error { return e.inner.SetConfig(key, value) })
}

func (e *Envelope) UpdateConfig(values map[string]any) error {
	return e.doWrite(func() error { return e.inner.UpdateConfig(values) })
}

func (e *Envelope) SetQueryScorer(scorer any) error {
	return e.doWrite(func() error { return e.inner.SetQueryScorer(scorer) })
}

func (e *Envelope) SetGlobalN(n int) error {
	return e.doWrite(func() error { return e.inner.SetGlobalN(n) })
}

func (e *Envelope) SetGlobalDFMap(df map[string]int) error {
	return e.doWrite(func() error { return e.inner.SetGlobalDFMap(df) })
}

// --- READ ---

func (e *Envelope) NameToDocid(name string) (string, error) {
	var out string
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.NameToDocid(name)
		return innerErr
	})
	return out, err
}

func (e *Envelope) DocidToName(docid string) (string, error) {
	var out string
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.DocidToName(docid)
		return innerErr
	})
	return out, err
}

func (e *Envelope) PostingsList(term string) ([]simindex.Posting, error) {
	var out []simindex.Posting
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.PostingsList(term)
		return innerErr
	})
	return out, err
}

func (e *Envelope) DocidsWithTerms(terms []string) ([]string, error) {
	var out []string
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.DocidsWithTerms(terms)
		return innerErr
	})
	return out, err
}

func (e *Envelope) DocnamesWithTerms(terms []string) ([]string, error) {
	var out []string
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.DocnamesWithTerms(terms)
		return innerErr
	})
	return out, err
}

func (e *Envelope) Query(q string) ([]simindex.Result, error) {
	var out []simindex.Result
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.Query(q)
		return innerErr
	})
	return out, err
}

func (e *Envelope) GetLocalN() (int, error) {
	var out int
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.GetLocalN()
		return innerErr
	})
	return out, err
}

func (e *Envelope) GetLocalDFMap() (map[string]int, error) {
	var out map[string]int
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.GetLocalDFMap()
		return innerErr
	})
	return out, err
}

func (e *Envelope) GetNameToDocidMap() (map[string]string, error) {
	var out map[string]string
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.GetNameToDocidMap()
		return innerErr
	})
	return out, err
}

func (e *Envelope) Config(key string) (any, error) {
	var out any
	err := e.doRead(func() error {
		var innerErr error
		out, innerErr = e.inner.Config(key)
		return innerErr
	})
	return out, err
}
