package ygggo_mockdb

import (
	"sort"
	"strings"
	"sync"
)

// DefaultConnectionString keys the bucket used for empty connection strings and
// the fallback bucket for connections that were never scripted.
const DefaultConnectionString = "DefaultConnection"

// ConnectionResults holds the script of one connection string: failure flags and
// a queue of results per command text. Command texts compare case-insensitively.
type ConnectionResults struct {
	ShouldThrowOnOpen     bool
	ShouldThrowOnCommit   bool
	ShouldThrowOnRollback bool

	mu       sync.Mutex
	commands map[string]*CommandQueue
}

// NewConnectionResults returns an empty bucket.
func NewConnectionResults() *ConnectionResults {
	return &ConnectionResults{commands: make(map[string]*CommandQueue)}
}

func commandKey(text string) string {
	if text == "" {
		text = DefaultCommandText
	}
	return strings.ToLower(text)
}

// Command returns the queue for text, creating it if needed.
func (r *ConnectionResults) Command(text string) *CommandQueue {
	key := commandKey(text)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commands == nil {
		r.commands = make(map[string]*CommandQueue)
	}
	q, ok := r.commands[key]
	if !ok {
		q = &CommandQueue{}
		r.commands[key] = q
	}
	return q
}

// DefaultCommand returns the fallback queue of this connection.
func (r *ConnectionResults) DefaultCommand() *CommandQueue { return r.Command(DefaultCommandText) }

// SetCommand replaces the queue for text.
func (r *ConnectionResults) SetCommand(text string, q *CommandQueue) {
	if q == nil {
		q = &CommandQueue{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commands == nil {
		r.commands = make(map[string]*CommandQueue)
	}
	r.commands[commandKey(text)] = q
}

// CommandTexts lists the normalized command keys that have a queue, sorted.
func (r *ConnectionResults) CommandTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.commands))
	for k := range r.commands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// next dequeues the result for text without creating queues. Unknown texts
// consume from the default command queue. A nil result means nothing was scripted.
func (r *ConnectionResults) next(text string) *CommandResults {
	r.mu.Lock()
	q, ok := r.commands[commandKey(text)]
	if !ok {
		q, ok = r.commands[commandKey(DefaultCommandText)]
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	res, _ := q.Dequeue()
	return res
}
