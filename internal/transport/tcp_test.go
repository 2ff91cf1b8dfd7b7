package transport_test

import (
	"testing"
	"time"

	"github.com/ssnode/cluster/internal/cluster"
	"github.com/ssnode/cluster/internal/transport"
)

func TestTCPNetworkRoundTrip(t *testing.T) {
	t.Parallel()

	a := cluster.NodeId{1}
	b := cluster.NodeId{2}
	addrA := "127.0.0.1:18171"
	addrB := "127.0.0.1:18172"

	netA, err := transport.NewTCPNetwork(a, addrA, []transport.Peer{{ID: b, Addr: addrB}}, nil)
	if err != nil {
		t.Fatalf("NewTCPNetwork(a): %v", err)
	}
	defer netA.Close()

	netB, err := transport.NewTCPNetwork(b, addrB, []transport.Peer{{ID: a, Addr: addrA}}, nil)
	if err != nil {
		t.Fatalf("NewTCPNetwork(b): %v", err)
	}
	defer netB.Close()

	netA.Connect()
	netB.Connect()

	deadline := time.Now().Add(5 * time.Second)
	var conn cluster.Connection
	var ok bool
	for time.Now().Before(deadline) {
		conn, ok = netA.Provider().Connection(b)
		if ok {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !ok {
		t.Fatal("a never established a connection to b")
	}

	conn.SendMessage(cluster.Message{Kind: cluster.KindEncryption, ID: cluster.SessionId{5}})

	select {
	case msg := <-netB.Inbound():
		if msg.Kind != cluster.KindEncryption || msg.ID != (cluster.SessionId{5}) {
			t.Errorf("received %+v, unexpected contents", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("b never received the message sent over its TCP link")
	}
}
