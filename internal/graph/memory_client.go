package graph

import (
	"context"
	"sync"
)

// MemoryClient records statements instead of running them. Tests queue
// canned results per access mode and inspect the recorded calls.
type MemoryClient struct {
	mu           sync.Mutex
	calls        map[accessMode][]ExecutedQuery
	results      map[accessMode][]Result
	err          error
	connectivity error
	closed       bool
}

type accessMode uint8

const (
	modeRead accessMode = iota
	modeWrite
)

// ExecutedQuery is one recorded statement.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// NewMemoryClient returns an empty client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		calls:   make(map[accessMode][]ExecutedQuery),
		results: make(map[accessMode][]Result),
	}
}

// WithError makes every subsequent statement fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError makes VerifyConnectivity fail with err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// PushReadResult queues the result of the next ExecuteRead.
func (m *MemoryClient) PushReadResult(res Result) {
	m.push(modeRead, res)
}

// PushWriteResult queues the result of the next ExecuteWrite.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.push(modeWrite, res)
}

func (m *MemoryClient) push(mode accessMode, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[mode] = append(m.results[mode], res)
}

func (m *MemoryClient) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ctx, modeWrite, cypher, params)
}

func (m *MemoryClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ctx, modeRead, cypher, params)
}

func (m *MemoryClient) execute(ctx context.Context, mode accessMode, cypher string, params map[string]any) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}
	m.calls[mode] = append(m.calls[mode], ExecutedQuery{Query: cypher, Params: cloneMap(params)})

	queued := m.results[mode]
	if len(queued) == 0 {
		return Result{}, nil
	}
	m.results[mode] = queued[1:]
	return queued[0], nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WriteCalls returns the recorded write statements.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	return m.recorded(modeWrite)
}

// ReadCalls returns the recorded read statements.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	return m.recorded(modeRead)
}

func (m *MemoryClient) recorded(mode accessMode) []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.calls[mode]...)
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
