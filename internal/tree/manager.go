// Package tree owns the canonical mapping from normalized test identifiers
// to tree nodes. Nodes are materialized lazily from identifiers alone; the
// tree shape is never given explicitly.
//
// The tree is mutated exclusively from the single event-processing path of a
// run session. Methods are synchronous and unsynchronized; concurrent run
// sessions must not share one Manager.
package tree

import (
	"strings"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/testid"
)

// Logger interface for debug logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Manager creates, looks up, and deletes test nodes. Intermediate folder,
// file, and context nodes are created on demand; a node is never duplicated
// for the same identifier.
type Manager struct {
	root       *TestNode
	rootPrefix string
	logger     Logger
}

// NewManager creates a Manager whose Normalize strips the given test
// directory prefix from incoming identifiers.
func NewManager(rootPrefix string, logger Logger) *Manager {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Manager{
		root:       newNode("", "", true),
		rootPrefix: rootPrefix,
		logger:     logger,
	}
}

// Root returns the synthetic root container. It is not addressable by id.
func (m *Manager) Root() *TestNode {
	return m.root
}

// Normalize canonicalizes an identifier against the configured test root.
func (m *Manager) Normalize(id string) string {
	return testid.Normalize(id, m.rootPrefix)
}

// GetOrCreate walks the identifier's ancestor chain, creating every missing
// node along the way, and returns the deepest node. onCreated, when non-nil,
// is invoked once per newly created node, shallowest first. Idempotent:
// repeated calls with the same id return the identical node instance.
func (m *Manager) GetOrCreate(id string, onCreated func(*TestNode)) *TestNode {
	id = m.Normalize(id)
	if id == "" {
		return m.root
	}

	current := m.root
	for _, ancestorID := range testid.AncestorChain(id) {
		child, ok := current.Child(ancestorID)
		if !ok {
			child = newNode(ancestorID, provisionalLabel(ancestorID), testid.CanResolveChildren(ancestorID, id))
			current.addChild(child)
			m.logger.Debug("Created test node: %s", ancestorID)
			if onCreated != nil {
				onCreated(child)
			}
		} else if ancestorID != id {
			// The node turned out to be a prefix of a deeper address, so it
			// is a context, not a leaf.
			child.CanResolveChildren = true
		}
		current = child
	}

	return current
}

// Get performs the same walk without creating. It returns absence at the
// first missing ancestor; lookups are never errors.
func (m *Manager) Get(id string) (*TestNode, bool) {
	id = m.Normalize(id)
	if id == "" {
		return m.root, true
	}

	current := m.root
	for _, ancestorID := range testid.AncestorChain(id) {
		child, ok := current.Child(ancestorID)
		if !ok {
			return nil, false
		}
		current = child
	}

	return current, true
}

// Delete removes the node from its parent container. A missing node is a
// logged no-op: deletion requests can race with runner output.
func (m *Manager) Delete(id string) {
	id = m.Normalize(id)

	node, ok := m.Get(id)
	if !ok || node == m.root {
		m.logger.Debug("Delete of unknown test node: %s", id)
		return
	}

	parent := node.Parent()
	if parent == nil || !parent.removeChild(id) {
		m.logger.Debug("Delete of unparented test node: %s", id)
	}
}

// provisionalLabel derives a display label from the last path segment of an
// identifier, pending the framework's own description metadata.
func provisionalLabel(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

type noopLogger struct{}

func (n *noopLogger) Debug(format string, args ...interface{}) {}
func (n *noopLogger) Info(format string, args ...interface{})  {}
func (n *noopLogger) Error(format string, args ...interface{}) {}
