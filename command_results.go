package ygggo_mockdb

import "sync"

// DefaultCommandText is the queue key used for commands scripted without text,
// and the fallback queue for commands whose text was never scripted.
const DefaultCommandText = "DefaultCommand"

// CommandResults is one scripted execution outcome, consumed by exactly one Execute* call.
type CommandResults struct {
	// ScalarResult is returned by ExecuteScalar.
	ScalarResult any
	// RowsAffectedResult is returned by ExecuteNonQuery and reported by readers.
	RowsAffectedResult int64
	// LastInsertIDResult is reported through the database/sql adapter.
	LastInsertIDResult int64
	// ResultSet is the ordered list of tables a reader iterates.
	ResultSet []*DataTable
	// ShouldThrowOnExecute makes the consuming call fail with a DataAccessError.
	ShouldThrowOnExecute bool
	// ExecuteError is wrapped as the cause when ShouldThrowOnExecute is set.
	ExecuteError error
	// OutParameters are copied by name into Output, InputOutput and ReturnValue parameters.
	OutParameters map[string]any
}

// CommandQueue is a FIFO of scripted results for one (connection, command text) key.
type CommandQueue struct {
	mu    sync.Mutex
	items []*CommandResults
}

// Enqueue appends results to the back of the queue.
func (q *CommandQueue) Enqueue(results ...*CommandResults) *CommandQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range results {
		if r == nil {
			r = &CommandResults{}
		}
		q.items = append(q.items, r)
	}
	return q
}

// Dequeue removes and returns the front result.
func (q *CommandQueue) Dequeue() (*CommandResults, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	r := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return r, true
}

// Peek returns the front result without removing it.
func (q *CommandQueue) Peek() (*CommandResults, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Len returns the number of pending results.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops all pending results.
func (q *CommandQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
