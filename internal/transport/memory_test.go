package transport_test

import (
	"errors"
	"testing"

	"github.com/ssnode/cluster/internal/cluster"
	"github.com/ssnode/cluster/internal/transport"
)

func TestMemoryNetworkJoinConnectsExistingNodes(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a, b := cluster.NodeId{1}, cluster.NodeId{2}

	cmA := net.Join(a)
	cmB := net.Join(b)

	peersOfA, err := cmA.Provider().ConnectedNodes()
	if err != nil {
		t.Fatalf("ConnectedNodes(a): %v", err)
	}
	if _, ok := peersOfA[b]; !ok {
		t.Error("a is not connected to b after b joined")
	}

	peersOfB, err := cmB.Provider().ConnectedNodes()
	if err != nil {
		t.Fatalf("ConnectedNodes(b): %v", err)
	}
	if _, ok := peersOfB[a]; !ok {
		t.Error("b is not connected to a after joining")
	}
}

func TestMemoryNetworkSendAndTake(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a, b := cluster.NodeId{1}, cluster.NodeId{2}
	cmA := net.Join(a)
	net.Join(b)

	conn, ok := cmA.Provider().Connection(b)
	if !ok {
		t.Fatal("no connection from a to b")
	}

	conn.SendMessage(cluster.Message{Kind: cluster.KindGeneration, ID: cluster.SessionId{7}})

	msg, ok := net.Take(b)
	if !ok {
		t.Fatal("Take(b) found nothing queued")
	}
	if msg.From != a || msg.Kind != cluster.KindGeneration || msg.ID != (cluster.SessionId{7}) {
		t.Errorf("Take(b) = %+v, unexpected contents", msg)
	}

	if _, ok := net.Take(b); ok {
		t.Error("Take(b) a second time should find nothing")
	}
}

func TestMemoryNetworkDisconnect(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a, b := cluster.NodeId{1}, cluster.NodeId{2}
	cmA := net.Join(a)
	cmB := net.Join(b)

	net.Disconnect(a, b)

	if _, ok := cmA.Provider().Connection(b); ok {
		t.Error("a still has a connection to b after Disconnect")
	}
	if _, ok := cmA.Provider().DisconnectedNodes()[b]; !ok {
		t.Error("b missing from a's DisconnectedNodes after Disconnect")
	}
	if _, ok := cmB.Provider().DisconnectedNodes()[a]; !ok {
		t.Error("a missing from b's DisconnectedNodes after Disconnect")
	}
}

func TestMemoryNetworkIsolate(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a, b, c := cluster.NodeId{1}, cluster.NodeId{2}, cluster.NodeId{3}
	cmA := net.Join(a)
	net.Join(b)
	net.Join(c)

	net.Isolate(a)

	peers, err := cmA.Provider().ConnectedNodes()
	if err != nil {
		t.Fatalf("ConnectedNodes(a): %v", err)
	}
	if len(peers) != 0 {
		t.Errorf("ConnectedNodes(a) after Isolate = %v, want empty", peers)
	}
}

func TestMemoryNetworkExcludeRemovesNode(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a, b := cluster.NodeId{1}, cluster.NodeId{2}
	net.Join(a)
	cmB := net.Join(b)

	net.Exclude(a)

	if _, ok := cmB.Provider().Connection(a); ok {
		t.Error("b still has a connection to excluded a")
	}
	if _, ok := net.Take(a); ok {
		t.Error("Take(excluded node) should find nothing, not panic")
	}
}

func TestMemoryNetworkDisconnectSelf(t *testing.T) {
	t.Parallel()

	net := transport.NewMemoryNetwork()
	a := cluster.NodeId{1}
	cmA := net.Join(a)

	net.DisconnectSelf(a)

	_, err := cmA.Provider().ConnectedNodes()
	if !errors.Is(err, cluster.ErrNodeDisconnected) {
		t.Errorf("ConnectedNodes after DisconnectSelf = %v, want ErrNodeDisconnected", err)
	}
}
