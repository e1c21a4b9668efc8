package report

import (
	"time"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/events"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/testid"
	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/tree"
)

// Logger interface for debug logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Reconciler merges result batches into the test tree and emits one status
// event per terminal result. Processing is strictly sequential over the batch
// array: later entries observe tree mutations made by earlier entries.
type Reconciler struct {
	tree   *tree.Manager
	bus    *events.Bus
	logger Logger
}

// NewReconciler creates a reconciler bound to one run session's tree and bus.
func NewReconciler(t *tree.Manager, bus *events.Bus, logger Logger) *Reconciler {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Reconciler{tree: t, bus: bus, logger: logger}
}

// Reconcile applies one decoded batch. Decode or validation failures leave
// the tree in its pre-batch state; nothing is mutated until the whole
// document has been decoded.
//
// After all results are applied, every container that existed before this
// batch and had at least one direct leaf-test child in it has its child set
// replaced by exactly the batch's leaves: tests renamed or removed between
// runs disappear. Containers the batch never touched keep their children,
// as do containers first discovered inside this batch.
func (r *Reconciler) Reconcile(doc []byte) error {
	batch, err := DecodeBatch(doc)
	if err != nil {
		return err
	}

	r.logger.Debug("Reconciling result batch: %d examples", len(batch.Examples))

	created := make(map[string]bool)
	onCreated := func(n *tree.TestNode) { created[n.ID] = true }

	batchLeaves := make(map[string][]*tree.TestNode)
	leafSeen := make(map[string]bool)
	trackedContainers := make(map[string]bool)
	var replaceOrder []*tree.TestNode

	for _, res := range batch.Examples {
		id := r.tree.Normalize(res.ID)
		node := r.tree.GetOrCreate(id, onCreated)

		parsed := testid.Parse(id)
		node.CanResolveChildren = !parsed.HasLocation()
		node.Label = DeriveLabel(res, parsed.Location)
		node.SetLocation(res.FilePath, res.LineNumber-1)

		if outcome, ok := outcomeFromStatus(res.Status); ok {
			r.emit(node, outcome, res)
		}

		if !parsed.HasLocation() {
			continue
		}

		parent := node.Parent()
		if parent == nil || parent == r.tree.Root() {
			continue
		}

		if !leafSeen[node.ID] {
			leafSeen[node.ID] = true
			batchLeaves[parent.ID] = append(batchLeaves[parent.ID], node)
		}
		if !created[parent.ID] && !trackedContainers[parent.ID] {
			trackedContainers[parent.ID] = true
			replaceOrder = append(replaceOrder, parent)
		}
	}

	for _, container := range replaceOrder {
		r.logger.Debug("Replacing children of %s with %d batch leaves",
			container.ID, len(batchLeaves[container.ID]))
		container.ReplaceChildren(batchLeaves[container.ID])
	}

	return nil
}

func (r *Reconciler) emit(node *tree.TestNode, outcome events.Outcome, res TestResult) {
	ev := events.StatusEvent{Node: node, Outcome: outcome}

	if res.DurationSec != nil {
		d := time.Duration(*res.DurationSec * float64(time.Second))
		ev.Duration = &d
	}

	if (outcome == events.OutcomeFailed || outcome == events.OutcomeErrored) && res.Exception != nil {
		ev.Failure = FormatFailure(res.Exception, node)
	}

	r.bus.Publish(ev)
}

// outcomeFromStatus maps formatter statuses onto event outcomes. An absent
// status means the example was listed without being run.
func outcomeFromStatus(status string) (events.Outcome, bool) {
	switch status {
	case "passed":
		return events.OutcomePassed, true
	case "failed":
		return events.OutcomeFailed, true
	case "errored":
		return events.OutcomeErrored, true
	case "skipped", "pending":
		return events.OutcomeSkipped, true
	default:
		return "", false
	}
}

type noopLogger struct{}

func (n *noopLogger) Debug(format string, args ...interface{}) {}
func (n *noopLogger) Info(format string, args ...interface{})  {}
func (n *noopLogger) Error(format string, args ...interface{}) {}
