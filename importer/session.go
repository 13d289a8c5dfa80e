// Package importer ties the pipeline stages together: it owns the
// per-upload import session, runs the sequential batch executor against the
// catalog, and exposes the whole flow over HTTP.
package importer

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"example.com/tenantimport/mapping"
	"example.com/tenantimport/match"
	"example.com/tenantimport/normalize"
	"example.com/tenantimport/reconcile"
	"example.com/tenantimport/tabular"
)

// State tracks where a session is in the upload → mapping → reconcile →
// execute flow.
type State string

const (
	// StateMapping means the file is parsed and the column mapping can
	// still be adjusted.
	StateMapping State = "mapping"
	// StateReconciled means all rows are normalized and classified;
	// execution may start.
	StateReconciled State = "reconciled"
	// StateRunning means the batch executor is submitting rows.
	StateRunning State = "running"
	// StateDone means execution finished and the summary is final.
	StateDone State = "done"
)

// Summary is the final result of one import run.
type Summary struct {
	TotalRows       int      `json:"total_rows"`
	ValidCount      int      `json:"valid_count"`
	ErrorCount      int      `json:"error_count"`
	LinkedCount     int      `json:"linked_count"`
	CreatedCount    int      `json:"created_count"`
	OrphanCount     int      `json:"orphan_count"`
	FailureMessages []string `json:"failure_messages"`
}

// Session is the ephemeral aggregate for one user-initiated import. It is
// never persisted; it lives in the Store until completion or cancellation.
type Session struct {
	ID       string
	Filename string
	Table    *tabular.Table

	// Mapping, Records and Candidates are written only inside the session
	// mutex (ApplyOverrides, Reconcile); the executor reads Records after
	// begin, which the same mutex orders after the last write.
	Mapping    *mapping.ColumnMapping
	Records    []*normalize.Record
	Candidates []match.Candidate

	mu       sync.Mutex
	state    State
	progress int
	summary  Summary
	cancel   context.CancelFunc
}

// Override reassigns one column position to a target field.
type Override struct {
	Column int           `json:"column"`
	Field  mapping.Field `json:"field"`
}

// ApplyOverrides edits the column mapping in one critical section, refusing
// once execution has started. It returns the updated assignments and the
// required fields still uncovered.
func (s *Session) ApplyOverrides(overrides []Override) ([]mapping.Assignment, []mapping.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning || s.state == StateDone {
		return nil, nil, false
	}
	for _, o := range overrides {
		s.Mapping.Set(o.Column, o.Field)
	}
	// Any edit invalidates an earlier reconcile pass.
	s.state = StateMapping
	assignments := append([]mapping.Assignment(nil), s.Mapping.Assignments...)
	return assignments, s.Mapping.MissingRequired(), true
}

// Reconcile normalizes and classifies every row against the candidate
// snapshot in one critical section, so a concurrent mapping edit or
// execution start cannot interleave with the rebuild. A false result with a
// non-empty missing list means required fields are uncovered; false with an
// empty list means execution already started.
func (s *Session) Reconcile(candidates []match.Candidate) ([]*normalize.Record, []mapping.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning || s.state == StateDone {
		return nil, nil, false
	}
	if missing := s.Mapping.MissingRequired(); len(missing) > 0 {
		return nil, missing, false
	}

	records := make([]*normalize.Record, len(s.Table.Rows))
	for i, row := range s.Table.Rows {
		rec := normalize.BuildRecord(row, s.Mapping, i+1)
		reconcile.Resolve(rec, candidates)
		records[i] = rec
	}
	s.Records = records
	s.Candidates = candidates
	s.state = StateReconciled
	return records, nil, true
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the execution progress, 0 to 100.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// FinalSummary returns the result of the run; meaningful only once the
// state is StateDone.
func (s *Session) FinalSummary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Session) setProgress(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// begin moves the session to StateRunning and installs the cancel func,
// refusing when the session is not ready or already running.
func (s *Session) begin(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReconciled {
		return false
	}
	s.state = StateRunning
	s.cancel = cancel
	return true
}

// finish records the summary and moves the session to StateDone.
func (s *Session) finish(summary Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
	s.progress = 100
	s.state = StateDone
	s.cancel = nil
}

// Cancel stops a running execution. Already applied rows are never undone.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Store keeps live import sessions keyed by ID.
type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewStore creates and returns a new session Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session for a parsed upload, with a suggested
// column mapping already attached.
func (s *Store) Create(filename string, table *tabular.Table) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &Session{
		ID:       uuid.New().String(),
		Filename: filename,
		Table:    table,
		Mapping:  mapping.Suggest(table.Columns),
		state:    StateMapping,
	}
	s.sessions[session.ID] = session
	return session
}

// Get retrieves a session by its ID.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Delete discards a session, cancelling any running execution first.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		session.Cancel()
	}
	return ok
}
