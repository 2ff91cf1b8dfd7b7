// Package transport provides cluster.ConnectionManager/ConnectionProvider
// implementations. MemoryNetwork is an in-process message queue used to
// drive multi-node cluster tests without sockets; TCPNetwork is a minimal
// gob-over-TCP transport for running a small real cluster. Neither attempts
// peer discovery or reconnection policy: wiring which nodes exist is the
// caller's job.
package transport

import (
	"sync"

	"github.com/ssnode/cluster/internal/cluster"
)

// MemoryNetwork is a shared in-process message bus connecting every node
// registered on it. Tests drive delivery explicitly by calling Take,
// rather than a background goroutine, so a test controls exactly how many
// messages have been exchanged at any point.
type MemoryNetwork struct {
	mu    sync.Mutex
	nodes map[cluster.NodeId]*memoryEndpoint
}

// NewMemoryNetwork builds an empty bus.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{nodes: make(map[cluster.NodeId]*memoryEndpoint)}
}

type queuedMessage struct {
	from cluster.NodeId
	to   cluster.NodeId
	msg  cluster.Message
}

type memoryEndpoint struct {
	mu           sync.Mutex
	id           cluster.NodeId
	network      *MemoryNetwork
	connected    map[cluster.NodeId]struct{}
	disconnected map[cluster.NodeId]struct{}
	inbox        []queuedMessage
}

// Join registers a new node on the network and returns its
// cluster.ConnectionManager. The node starts connected to every node
// already joined (and they to it); Isolate/Exclude can be used afterward to
// simulate partial connectivity.
func (n *MemoryNetwork) Join(id cluster.NodeId) *MemoryConnectionManager {
	n.mu.Lock()
	defer n.mu.Unlock()

	ep := &memoryEndpoint{
		id:           id,
		network:      n,
		connected:    make(map[cluster.NodeId]struct{}),
		disconnected: make(map[cluster.NodeId]struct{}),
	}
	for peer, peerEp := range n.nodes {
		ep.connected[peer] = struct{}{}
		peerEp.mu.Lock()
		peerEp.connected[id] = struct{}{}
		peerEp.mu.Unlock()
	}
	n.nodes[id] = ep
	return &MemoryConnectionManager{ep: ep}
}

// Isolate disconnects id from every other node (and every other node from
// id), simulating a total network partition of one node.
func (n *MemoryNetwork) Isolate(id cluster.NodeId) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ep, ok := n.nodes[id]
	if !ok {
		return
	}
	for peer := range ep.connected {
		n.disconnectPair(id, peer)
	}
}

// Exclude removes id from the network entirely: every other node forgets
// it, and it forgets every other node.
func (n *MemoryNetwork) Exclude(id cluster.NodeId) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ep, ok := n.nodes[id]
	if !ok {
		return
	}
	for peer := range ep.connected {
		n.disconnectPair(id, peer)
	}
	delete(n.nodes, id)
}

// DisconnectSelf marks id's own loopback entry as gone, simulating a node
// whose transport layer can no longer even account for itself. Callers
// building a ClusterView over this node will then get ErrNodeDisconnected
// from ConnectedNodes instead of a peer snapshot.
func (n *MemoryNetwork) DisconnectSelf(id cluster.NodeId) {
	n.mu.Lock()
	ep, ok := n.nodes[id]
	n.mu.Unlock()
	if !ok {
		return
	}
	ep.mu.Lock()
	ep.disconnected[id] = struct{}{}
	ep.mu.Unlock()
}

// Disconnect breaks the single link between a and b.
func (n *MemoryNetwork) Disconnect(a, b cluster.NodeId) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnectPair(a, b)
}

func (n *MemoryNetwork) disconnectPair(a, b cluster.NodeId) {
	if epA, ok := n.nodes[a]; ok {
		epA.mu.Lock()
		delete(epA.connected, b)
		epA.disconnected[b] = struct{}{}
		epA.mu.Unlock()
	}
	if epB, ok := n.nodes[b]; ok {
		epB.mu.Lock()
		delete(epB.connected, a)
		epB.disconnected[a] = struct{}{}
		epB.mu.Unlock()
	}
}

func (ep *memoryEndpoint) enqueue(from cluster.NodeId, msg cluster.Message) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.inbox = append(ep.inbox, queuedMessage{from: from, to: ep.id, msg: msg})
}

// Take pops the oldest queued message for id, if any.
func (n *MemoryNetwork) Take(id cluster.NodeId) (cluster.InboundMessage, bool) {
	n.mu.Lock()
	ep, ok := n.nodes[id]
	n.mu.Unlock()
	if !ok {
		return cluster.InboundMessage{}, false
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()
	if len(ep.inbox) == 0 {
		return cluster.InboundMessage{}, false
	}
	q := ep.inbox[0]
	ep.inbox = ep.inbox[1:]
	return cluster.InboundMessage{
		From:    q.from,
		Kind:    q.msg.Kind,
		ID:      q.msg.ID,
		Sub:     q.msg.Sub,
		HasSub:  q.msg.HasSub,
		Payload: q.msg.Payload,
	}, true
}

// MemoryConnectionManager is the cluster.ConnectionManager for one node
// joined to a MemoryNetwork.
type MemoryConnectionManager struct {
	ep *memoryEndpoint
}

func (m *MemoryConnectionManager) Connect() {}

func (m *MemoryConnectionManager) Provider() cluster.ConnectionProvider {
	return memoryProvider{ep: m.ep}
}

type memoryProvider struct {
	ep *memoryEndpoint
}

func (p memoryProvider) ConnectedNodes() (map[cluster.NodeId]struct{}, error) {
	p.ep.mu.Lock()
	defer p.ep.mu.Unlock()
	if _, selfDisconnected := p.ep.disconnected[p.ep.id]; selfDisconnected {
		return nil, cluster.ErrNodeDisconnected
	}
	out := make(map[cluster.NodeId]struct{}, len(p.ep.connected))
	for n := range p.ep.connected {
		out[n] = struct{}{}
	}
	return out, nil
}

func (p memoryProvider) DisconnectedNodes() map[cluster.NodeId]struct{} {
	p.ep.mu.Lock()
	defer p.ep.mu.Unlock()
	out := make(map[cluster.NodeId]struct{}, len(p.ep.disconnected))
	for n := range p.ep.disconnected {
		if n == p.ep.id {
			continue
		}
		out[n] = struct{}{}
	}
	return out
}

func (p memoryProvider) Connection(node cluster.NodeId) (cluster.Connection, bool) {
	p.ep.mu.Lock()
	_, ok := p.ep.connected[node]
	p.ep.mu.Unlock()
	if !ok {
		return nil, false
	}
	return memoryConnection{network: p.ep.network, from: p.ep.id, to: node}, true
}

type memoryConnection struct {
	network *MemoryNetwork
	from    cluster.NodeId
	to      cluster.NodeId
}

func (c memoryConnection) SendMessage(msg cluster.Message) {
	c.network.mu.Lock()
	ep, ok := c.network.nodes[c.to]
	c.network.mu.Unlock()
	if !ok {
		return
	}
	ep.enqueue(c.from, msg)
}
