package funnel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/catalog"
	"github.com/BTreeMap/IntakeFlow/internal/checkpoint"
	"github.com/BTreeMap/IntakeFlow/internal/models"
	"github.com/BTreeMap/IntakeFlow/internal/session"
	"github.com/BTreeMap/IntakeFlow/internal/store"
	"github.com/BTreeMap/IntakeFlow/internal/submission"
	"github.com/BTreeMap/IntakeFlow/internal/validate"
)

// DefaultTaskTimeout bounds each background checkpoint or submission task.
const DefaultTaskTimeout = 30 * time.Second

// taskQueueSize is the buffer of the background worker queue. Enqueue never
// blocks a user-facing operation: when the queue is full the task is dropped
// with a log line, matching the best-effort contract of checkpoints.
const taskQueueSize = 64

// Notifier sends an out-of-band confirmation after a successful submission.
type Notifier interface {
	SendConfirmation(ctx context.Context, phone, recordID string, lang models.Language) error
}

// Opts holds configuration options for the engine.
type Opts struct {
	Checkpoints *checkpoint.Client
	Collector   *submission.Collector
	Notifier    Notifier
	TaskTimeout time.Duration
}

// Option defines a configuration option for the engine.
type Option func(*Opts)

// WithCheckpointClient sets the milestone checkpoint client.
func WithCheckpointClient(c *checkpoint.Client) Option {
	return func(o *Opts) { o.Checkpoints = c }
}

// WithCollector sets the terminal submission collector.
func WithCollector(c *submission.Collector) Option {
	return func(o *Opts) { o.Collector = c }
}

// WithNotifier sets the post-submission confirmation notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// WithTaskTimeout overrides the per-task timeout of the background worker.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Opts) { o.TaskTimeout = d }
}

// AdvanceResult reports the outcome of an Advance call. When Failures is
// non-empty the session did not move and CurrentStep echoes the step that
// failed validation.
type AdvanceResult struct {
	CurrentStep string                     `json:"current_step"`
	Completed   bool                       `json:"completed"`
	Failures    []models.ValidationFailure `json:"failures,omitempty"`
}

// task is one unit of background work. gen pins the session generation the
// task was enqueued under; a session reset bumps the generation so stale
// checkpoint and submission work is discarded instead of resurrecting old
// answers.
type task struct {
	sessionID string
	gen       uint64
	run       func(ctx context.Context)
}

// Engine drives sessions through the step catalog. All user-facing
// operations are synchronous against the in-memory session; checkpoints and
// the terminal submission run on a single background worker so a slow or
// down collaborator never blocks navigation.
type Engine struct {
	catalog     *catalog.Catalog
	resolver    *Resolver
	persist     store.Store
	checkpoints *checkpoint.Client
	collector   *submission.Collector
	notifier    Notifier
	taskTimeout time.Duration

	mu          sync.Mutex
	sessions    map[string]*session.Store
	generations map[string]uint64

	tasks chan task
	done  chan struct{}
	wg    sync.WaitGroup
}

// New creates an engine over the given catalog and persistence store and
// starts its background worker.
func New(cat *catalog.Catalog, persist store.Store, opts ...Option) *Engine {
	cfg := Opts{TaskTimeout: DefaultTaskTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		catalog:     cat,
		resolver:    NewResolver(cat),
		persist:     persist,
		checkpoints: cfg.Checkpoints,
		collector:   cfg.Collector,
		notifier:    cfg.Notifier,
		taskTimeout: cfg.TaskTimeout,
		sessions:    make(map[string]*session.Store),
		generations: make(map[string]uint64),
		tasks:       make(chan task, taskQueueSize),
		done:        make(chan struct{}),
	}
	e.wg.Add(1)
	go e.worker()
	slog.Debug("funnel.New: engine started", "steps", cat.Len())
	return e
}

// Close stops the background worker after draining queued tasks.
func (e *Engine) Close() {
	close(e.done)
	e.wg.Wait()
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case t := <-e.tasks:
			e.runTask(t)
		case <-e.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case t := <-e.tasks:
					e.runTask(t)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) runTask(t task) {
	e.mu.Lock()
	current := e.generations[t.sessionID]
	e.mu.Unlock()
	if current != t.gen {
		slog.Debug("funnel.runTask: discarding stale task", "sessionID", t.sessionID, "taskGen", t.gen, "currentGen", current)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.taskTimeout)
	defer cancel()
	t.run(ctx)
}

func (e *Engine) enqueue(sessionID string, run func(ctx context.Context)) {
	e.mu.Lock()
	gen := e.generations[sessionID]
	e.mu.Unlock()
	select {
	case e.tasks <- task{sessionID: sessionID, gen: gen, run: run}:
	default:
		slog.Warn("funnel.enqueue: task queue full, dropping task", "sessionID", sessionID)
	}
}

// Open returns the session with the given id, restoring it from persistence
// or starting it fresh at the first catalog step.
func (e *Engine) Open(sessionID string) (*session.Store, error) {
	if sessionID == "" {
		return nil, models.ErrEmptySessionID
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if sess, ok := e.sessions[sessionID]; ok {
		return sess, nil
	}
	sess := session.Open(sessionID, e.catalog.First(), e.persist)
	e.sessions[sessionID] = sess
	return sess, nil
}

// Session returns the open session with the given id, or ErrSessionNotFound
// when it was never opened on this engine.
func (e *Engine) Session(sessionID string) (*session.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return sess, nil
}

// Catalog returns the step catalog this engine navigates.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// SessionCount returns the number of sessions open on this engine.
func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Advance validates answers against the session's current step and, when
// they pass, stores them and moves to the resolved next step. Info steps
// encountered on the way are completed automatically. Reaching the terminal
// step fires the qualification checkpoint and enqueues the submission.
func (e *Engine) Advance(sessionID string, answers map[string]interface{}) (AdvanceResult, error) {
	sess, err := e.Session(sessionID)
	if err != nil {
		return AdvanceResult{}, err
	}
	snapshot := sess.Snapshot()
	step, err := e.catalog.Step(snapshot.CurrentStep)
	if err != nil {
		return AdvanceResult{}, err
	}
	if step.IsTerminal() {
		return AdvanceResult{}, models.ErrSessionAlreadyEnded
	}

	if failures := validate.Step(step, answers); len(failures) > 0 {
		slog.Debug("funnel.Advance: validation failed", "sessionID", sessionID, "step", step.ID, "failures", len(failures))
		return AdvanceResult{CurrentStep: step.ID, Failures: failures}, nil
	}

	if partial := mapToStorageKeys(step, answers); len(partial) > 0 {
		sess.SetMany(partial)
	}
	if step.ID == catalog.StepLanguage {
		e.applyLanguage(sess, answers)
	}
	sess.MarkStepCompleted(step.ID)
	e.fireCheckpoint(sess, step)

	current := step
	for {
		nextID, err := e.resolver.ResolveNext(current.ID, sess.Snapshot().Responses)
		if err != nil {
			return AdvanceResult{}, err
		}
		next, err := e.catalog.Step(nextID)
		if err != nil {
			return AdvanceResult{}, err
		}
		sess.SetCurrentStep(next.ID)
		if next.Kind != models.StepKindInfo {
			current = next
			break
		}
		// Info steps carry no fields and complete on arrival.
		sess.MarkStepCompleted(next.ID)
		e.fireCheckpoint(sess, next)
		current = next
	}

	if current.IsTerminal() {
		e.fireCheckpoint(sess, current)
		e.enqueueSubmission(sess)
		slog.Info("funnel.Advance: session reached terminal step", "sessionID", sessionID, "step", current.ID)
		return AdvanceResult{CurrentStep: current.ID, Completed: true}, nil
	}
	slog.Debug("funnel.Advance: advanced", "sessionID", sessionID, "from", step.ID, "to", current.ID)
	return AdvanceResult{CurrentStep: current.ID}, nil
}

// Back moves the session to the statically linked previous step and returns
// its id. Backing up never erases stored answers. A terminal session whose
// submission already succeeded cannot back up: the record is created and the
// session is about to be cleared.
func (e *Engine) Back(sessionID string) (string, error) {
	sess, err := e.Session(sessionID)
	if err != nil {
		return "", err
	}
	currentID := sess.Snapshot().CurrentStep
	step, err := e.catalog.Step(currentID)
	if err != nil {
		return "", err
	}
	if step.IsTerminal() && e.submitted(sessionID) {
		return "", models.ErrSessionAlreadyEnded
	}
	prevID, err := e.resolver.ResolvePrevious(currentID)
	if err != nil {
		return "", err
	}
	if prevID != currentID {
		sess.SetCurrentStep(prevID)
		slog.Debug("funnel.Back: moved back", "sessionID", sessionID, "from", currentID, "to", prevID)
	}
	return prevID, nil
}

// Reset wipes the session's answers and history, returns it to the first
// step, and invalidates any queued background work for it. The session id
// itself survives so records across attempts stay correlated.
func (e *Engine) Reset(sessionID string) (string, error) {
	sess, err := e.Session(sessionID)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.generations[sessionID]++
	e.mu.Unlock()
	sess.Reset()
	if e.checkpoints != nil {
		e.checkpoints.ResetCompleted(sessionID)
	}
	slog.Info("funnel.Reset: session reset", "sessionID", sessionID)
	return e.catalog.First(), nil
}

// fireCheckpoint enqueues the step's milestone checkpoint unless it already
// fired for this session. The completed-set check happens here at enqueue
// time so repeated passes over a step emit the milestone once.
func (e *Engine) fireCheckpoint(sess *session.Store, step models.StepDefinition) {
	if e.checkpoints == nil || step.Checkpoint == "" {
		return
	}
	sessionID := sess.SessionID()
	if e.checkpoints.Completed(sessionID, step.Checkpoint) {
		return
	}
	e.checkpoints.MarkCompleted(sessionID, step.Checkpoint)
	name := step.Checkpoint
	status := step.CheckpointStatus
	snapshot := sess.Snapshot()
	e.enqueue(sessionID, func(ctx context.Context) {
		e.checkpoints.Submit(ctx, sessionID, name, status, checkpointData(snapshot))
	})
}

// enqueueSubmission queues the terminal collect-and-submit. The payload is
// assembled inside the task from a fresh snapshot so late checkpoint names
// are included. One successful submission per session: once a success is
// recorded in the store, further tasks for the same session are no-ops, and
// the session itself is cleared so stale answers cannot be resubmitted.
func (e *Engine) enqueueSubmission(sess *session.Store) {
	if e.collector == nil {
		return
	}
	sessionID := sess.SessionID()
	e.enqueue(sessionID, func(ctx context.Context) {
		if e.submitted(sessionID) {
			slog.Info("funnel.enqueueSubmission: submission already succeeded, skipping", "sessionID", sessionID)
			return
		}
		var completed []string
		if e.checkpoints != nil {
			completed = e.checkpoints.CompletedNames(sessionID)
		}
		snapshot := sess.Snapshot()
		payload := submission.Collect(snapshot, completed)
		result := e.collector.Submit(ctx, sessionID, payload)
		if !result.Success {
			return
		}
		if e.notifier != nil {
			phone, _ := snapshot.Responses[catalog.KeyPhone].(string)
			if phone != "" {
				if err := e.notifier.SendConfirmation(ctx, phone, result.ID, snapshot.Language); err != nil {
					slog.Warn("funnel.enqueueSubmission: confirmation send failed", "error", err, "sessionID", sessionID)
				}
			}
		}
		e.completeSession(sessionID)
	})
}

// submitted reports whether the store already holds a successful terminal
// submission for the session. Pending-retry and failed records do not count;
// those belong to the retry path.
func (e *Engine) submitted(sessionID string) bool {
	sub, err := e.persist.GetSubmission(sessionID)
	if err != nil || sub == nil {
		return false
	}
	return sub.Outcome == models.SubmissionSuccess
}

// completeSession clears a session after its submission succeeded: the
// persisted record and the in-memory session are dropped so the answers
// cannot be edited or resubmitted, while the submission record itself stays
// for status lookups. A later open with the same id starts fresh.
func (e *Engine) completeSession(sessionID string) {
	e.mu.Lock()
	delete(e.sessions, sessionID)
	delete(e.generations, sessionID)
	e.mu.Unlock()
	if err := e.persist.DeleteSession(sessionID); err != nil {
		slog.Warn("funnel.completeSession: failed to clear persisted record", "error", err, "sessionID", sessionID)
	}
	if e.checkpoints != nil {
		e.checkpoints.ResetCompleted(sessionID)
	}
	slog.Info("funnel.completeSession: session cleared after successful submission", "sessionID", sessionID)
}

// applyLanguage records the chosen display language when the language step
// stores a valid value. Invalid values leave the default in place.
func (e *Engine) applyLanguage(sess *session.Store, answers map[string]interface{}) {
	raw, _ := answers[catalog.FieldLanguage].(string)
	lang := models.Language(raw)
	if models.IsValidLanguage(lang) {
		sess.SetLanguage(lang)
	}
}

// mapToStorageKeys translates field-id keyed answers into storage-key keyed
// values, filling declared defaults for fields the caller omitted.
func mapToStorageKeys(step models.StepDefinition, answers map[string]interface{}) map[string]interface{} {
	partial := make(map[string]interface{}, len(step.Fields))
	for _, field := range step.Fields {
		if value, ok := answers[field.ID]; ok {
			partial[field.Key] = value
			continue
		}
		if field.Default != nil {
			partial[field.Key] = field.Default
		}
	}
	return partial
}

// checkpointData extracts the contact subset sent alongside milestone
// checkpoints so partially completed intakes stay reachable.
func checkpointData(snapshot models.ResponseRecord) map[string]interface{} {
	data := make(map[string]interface{})
	for _, key := range []string{catalog.KeyFirstName, catalog.KeyLastName, catalog.KeyEmail, catalog.KeyPhone} {
		if v, ok := snapshot.Responses[key]; ok {
			data[key] = v
		}
	}
	data["current_step"] = snapshot.CurrentStep
	return data
}
