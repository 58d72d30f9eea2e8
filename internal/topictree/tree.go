package topictree

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Message is the per-node payload record kept for each observed event.
type Message struct {
	Seq        uint64    `json:"seq"`
	Payload    []byte    `json:"payload,omitempty"`
	QoS        byte      `json:"qos"`
	Retained   bool      `json:"retained"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Node is one topic level. Children are guarded by the node's own lock;
// the sink executor is the only writer, readers may traverse concurrently.
type Node struct {
	mu       sync.RWMutex
	name     string
	path     string
	parent   *Node // back-ref only; the parent owns the child, never the reverse
	children map[string]*Node

	count  uint64
	recent []Message // newest last, capped at the tree's retain limit
}

// Name returns the node's own segment.
func (n *Node) Name() string { return n.name }

// Path returns the full slash-joined topic down to this node.
func (n *Node) Path() string { return n.path }

// Parent returns the node one level up, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Child returns the attached child with the given segment name, or nil.
func (n *Node) Child(name string) *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.children[name]
}

// Count returns how many messages have been recorded at this node.
func (n *Node) Count() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.count
}

// Last returns the most recent message recorded at this node.
func (n *Node) Last() (Message, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.recent) == 0 {
		return Message{}, false
	}
	return n.recent[len(n.recent)-1], true
}

// Recent returns a copy of the retained messages, newest last.
func (n *Node) Recent() []Message {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Message, len(n.recent))
	copy(out, n.recent)
	return out
}

func (n *Node) record(retain int, msg Message) {
	n.mu.Lock()
	n.count++
	if retain > 0 {
		n.recent = append(n.recent, msg)
		if len(n.recent) > retain {
			n.recent = n.recent[len(n.recent)-retain:]
		}
	}
	n.mu.Unlock()
}

// Tree is the topic trie. One Stage writer (the pump goroutine), one Apply
// writer (the sink executor), any number of readers.
type Tree struct {
	root   *Node
	retain int
	nodes  atomic.Int64

	stageMu sync.Mutex
	staged  map[*Node]map[string]*Node // parent -> segment -> detached node
}

// New returns an empty tree retaining up to retain messages per node.
// retain <= 0 keeps counts only.
func New(retain int) *Tree {
	return &Tree{
		root:   &Node{children: make(map[string]*Node)},
		retain: retain,
	}
}

// Op is one staged event: the resolved target node plus the message to
// record there once the node batch is attached.
type Op struct {
	node *Node
	msg  Message
}

// Stage resolves segments against the tree, creating detached nodes for
// missing levels, and returns the op to pass to Apply. Called from the
// pump goroutine only. Staged nodes are invisible to readers until Apply
// attaches them.
func (t *Tree) Stage(segments []string, msg Message) Op {
	t.stageMu.Lock()
	defer t.stageMu.Unlock()
	cur := t.root
	path := ""
	for _, seg := range segments {
		if path == "" {
			path = seg
		} else {
			path = path + "/" + seg
		}
		next := cur.Child(seg)
		if next == nil {
			next = t.stagedChild(cur, seg, path)
		}
		cur = next
	}
	return Op{node: cur, msg: msg}
}

func (t *Tree) stagedChild(parent *Node, seg, path string) *Node {
	if t.staged == nil {
		t.staged = make(map[*Node]map[string]*Node)
	}
	pending := t.staged[parent]
	if n, ok := pending[seg]; ok {
		return n
	}
	n := &Node{name: seg, path: path, parent: parent, children: make(map[string]*Node)}
	if pending == nil {
		pending = make(map[string]*Node)
		t.staged[parent] = pending
	}
	pending[seg] = n
	return n
}

// StagedTargets reports how many parents have pending child attachments.
func (t *Tree) StagedTargets() int {
	t.stageMu.Lock()
	defer t.stageMu.Unlock()
	return len(t.staged)
}

// StagedNodes reports how many detached nodes are awaiting Apply.
func (t *Tree) StagedNodes() int {
	t.stageMu.Lock()
	defer t.stageMu.Unlock()
	total := 0
	for _, pending := range t.staged {
		total += len(pending)
	}
	return total
}

// Apply attaches all staged nodes with one lock acquisition per parent,
// then records the batch's messages. Called from the sink executor only.
// It returns the number of nodes attached.
//
// The staged map stays visible under stageMu until every node is attached,
// so a Stage racing with Apply always resolves a segment to the one node
// that will end up in the tree, never a duplicate.
func (t *Tree) Apply(ops []Op) int {
	t.stageMu.Lock()
	attached := 0
	for parent, pending := range t.staged {
		parent.mu.Lock()
		for seg, n := range pending {
			parent.children[seg] = n
		}
		parent.mu.Unlock()
		attached += len(pending)
	}
	t.staged = nil
	t.stageMu.Unlock()
	t.nodes.Add(int64(attached))

	for _, op := range ops {
		op.node.record(t.retain, op.msg)
	}
	return attached
}

// NodeCount reports the number of attached nodes, excluding the root.
func (t *Tree) NodeCount() int64 { return t.nodes.Load() }

// Clear drops the whole tree and any staged nodes.
func (t *Tree) Clear() {
	t.stageMu.Lock()
	t.staged = nil
	t.stageMu.Unlock()

	t.root.mu.Lock()
	t.root.children = make(map[string]*Node)
	t.root.count = 0
	t.root.recent = nil
	t.root.mu.Unlock()
	t.nodes.Store(0)
}

// NodeSnapshot is a read-only copy of one node for serving to clients.
type NodeSnapshot struct {
	Name     string          `json:"name"`
	Path     string          `json:"path,omitempty"`
	Count    uint64          `json:"count"`
	Last     *Message        `json:"last,omitempty"`
	Children []*NodeSnapshot `json:"children,omitempty"`
}

// Snapshot copies the tree under per-node read locks. Children are sorted
// by segment name so output is stable.
func (t *Tree) Snapshot() *NodeSnapshot {
	return snapshotNode(t.root)
}

func snapshotNode(n *Node) *NodeSnapshot {
	n.mu.RLock()
	snap := &NodeSnapshot{Name: n.name, Path: n.path, Count: n.count}
	if len(n.recent) > 0 {
		last := n.recent[len(n.recent)-1]
		snap.Last = &last
	}
	kids := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		kids = append(kids, c)
	}
	n.mu.RUnlock()

	sort.Slice(kids, func(i, j int) bool { return kids[i].name < kids[j].name })
	for _, c := range kids {
		snap.Children = append(snap.Children, snapshotNode(c))
	}
	return snap
}
