package transport

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ssnode/cluster/internal/cluster"
)

func init() {
	// Concrete payload types flow through Message.Payload as interface
	// values; package sessionsim registers its payload types with gob at
	// init time.
	gob.Register(cluster.InboundMessage{})
}

// Peer names one configured member of a TCPNetwork.
type Peer struct {
	ID   cluster.NodeId
	Addr string
}

// TCPNetwork is a minimal gob-over-TCP transport: each configured peer gets
// one outbound connection, whose dial Connect retries until it succeeds,
// plus one listener accepting inbound connections from peers that dial us
// first. A link that fails after connecting is marked down and is redialed
// only by a later call to Connect.
// It does not discover peers; the configured set is fixed at construction.
type TCPNetwork struct {
	self     cluster.NodeId
	logger   *slog.Logger
	peers    map[cluster.NodeId]string
	mu       sync.Mutex
	links    map[cluster.NodeId]*tcpLink
	inbound  chan cluster.InboundMessage
	done     chan struct{}
	ln       net.Listener
	accepted []net.Conn
}

type tcpLink struct {
	mu   sync.Mutex
	enc  *gob.Encoder
	conn net.Conn
	up   bool
}

// NewTCPNetwork builds a transport for self, dialing out to every peer in
// peers and listening on listenAddr for inbound connections.
func NewTCPNetwork(self cluster.NodeId, listenAddr string, peers []Peer, logger *slog.Logger) (*TCPNetwork, error) {
	if logger == nil {
		logger = slog.Default()
	}
	n := &TCPNetwork{
		self:    self,
		logger:  logger.With(slog.String("component", "transport.tcp")),
		peers:   make(map[cluster.NodeId]string, len(peers)),
		links:   make(map[cluster.NodeId]*tcpLink),
		inbound: make(chan cluster.InboundMessage, 256),
		done:    make(chan struct{}),
	}
	for _, p := range peers {
		n.peers[p.ID] = p.Addr
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", listenAddr, err)
	}
	n.ln = ln
	go n.accept(ln)
	return n, nil
}

// Inbound exposes the stream of messages received from peers, for the
// router to drain.
func (n *TCPNetwork) Inbound() <-chan cluster.InboundMessage { return n.inbound }

func (n *TCPNetwork) accept(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-n.done:
				return
			default:
				n.logger.Warn("accept failed", slog.String("error", err.Error()))
				continue
			}
		}
		n.mu.Lock()
		n.accepted = append(n.accepted, conn)
		n.mu.Unlock()
		go n.readLoop(conn)
	}
}

func (n *TCPNetwork) readLoop(conn net.Conn) {
	defer conn.Close()
	dec := gob.NewDecoder(bufio.NewReader(conn))
	for {
		var msg cluster.InboundMessage
		if err := dec.Decode(&msg); err != nil {
			return
		}
		select {
		case n.inbound <- msg:
		case <-n.done:
			return
		}
	}
}

// Connect starts background dialers for every configured peer that does
// not already have a connection.
func (n *TCPNetwork) Connect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, addr := range n.peers {
		if link, ok := n.links[id]; ok && link.up {
			continue
		}
		go n.dial(id, addr)
	}
}

func (n *TCPNetwork) dial(id cluster.NodeId, addr string) {
	for {
		select {
		case <-n.done:
			return
		default:
		}
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			n.logger.Debug("dial failed, retrying", slog.String("peer", id.String()), slog.String("error", err.Error()))
			time.Sleep(2 * time.Second)
			continue
		}
		link := &tcpLink{enc: gob.NewEncoder(conn), conn: conn, up: true}
		n.mu.Lock()
		n.links[id] = link
		n.mu.Unlock()
		n.logger.Info("connected to peer", slog.String("peer", id.String()))
		return
	}
}

func (n *TCPNetwork) Provider() cluster.ConnectionProvider { return tcpProvider{n: n} }

type tcpProvider struct{ n *TCPNetwork }

func (p tcpProvider) ConnectedNodes() (map[cluster.NodeId]struct{}, error) {
	p.n.mu.Lock()
	defer p.n.mu.Unlock()
	out := make(map[cluster.NodeId]struct{}, len(p.n.links))
	for id, link := range p.n.links {
		if link.up {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (p tcpProvider) DisconnectedNodes() map[cluster.NodeId]struct{} {
	p.n.mu.Lock()
	defer p.n.mu.Unlock()
	out := make(map[cluster.NodeId]struct{})
	for id := range p.n.peers {
		if link, ok := p.n.links[id]; !ok || !link.up {
			out[id] = struct{}{}
		}
	}
	return out
}

func (p tcpProvider) Connection(node cluster.NodeId) (cluster.Connection, bool) {
	p.n.mu.Lock()
	link, ok := p.n.links[node]
	p.n.mu.Unlock()
	if !ok || !link.up {
		return nil, false
	}
	return tcpConnection{link: link}, true
}

type tcpConnection struct{ link *tcpLink }

func (c tcpConnection) SendMessage(msg cluster.Message) {
	c.link.mu.Lock()
	defer c.link.mu.Unlock()
	if !c.link.up {
		return
	}
	env := cluster.InboundMessage{
		Kind:    msg.Kind,
		ID:      msg.ID,
		Sub:     msg.Sub,
		HasSub:  msg.HasSub,
		Payload: msg.Payload,
	}
	if err := c.link.enc.Encode(env); err != nil {
		c.link.up = false
	}
}

// Close stops all dialers, closes the listener so accept unblocks, and
// closes every established peer connection so its reader unblocks too.
func (n *TCPNetwork) Close() {
	close(n.done)
	if n.ln != nil {
		n.ln.Close()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, link := range n.links {
		link.conn.Close()
	}
	for _, conn := range n.accepted {
		conn.Close()
	}
}
