package admin_test

import (
	"bufio"
	"encoding/hex"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/ssnode/cluster/internal/admin"
	"github.com/ssnode/cluster/internal/cluster"
)

type fakeClient struct {
	cluster.ClusterClient
	params cluster.ServersSetChangeParams
	err    error
}

func (f *fakeClient) NewServersSetChangeSession(params cluster.ServersSetChangeParams) (cluster.ServersSetChangeSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return fakeSession{}, nil
}

type fakeSession struct{}

func (fakeSession) ID() cluster.SessionId   { return cluster.ServersSetChangeSessionID }
func (fakeSession) Origin() *cluster.NodeId { return nil }
func (fakeSession) IsFinished() bool        { return false }
func (fakeSession) HandleMessage(from cluster.NodeId, payload any) error {
	return nil
}
func (fakeSession) Initialize(newNodesSet map[cluster.NodeId]struct{}, oldSetSignature, newSetSignature [65]byte) error {
	return nil
}

func serve(t *testing.T, client cluster.ClusterClient) net.Addr {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	l := admin.NewTextListener(client, nil)
	go func() { _ = l.Serve(ln) }()
	return ln.Addr()
}

func TestSetChangeCommand(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	addr := serve(t, client)

	nodeID := strings.Repeat("aa", 32)
	sig := strings.Repeat("bb", 65)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("setchange " + nodeID + " " + sig + " " + sig + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !strings.HasPrefix(reply, "OK ") {
		t.Fatalf("reply = %q, want OK prefix", reply)
	}

	if len(client.params.NewNodesSet) != 1 {
		t.Errorf("NewNodesSet len = %d, want 1", len(client.params.NewNodesSet))
	}
	wantRaw, _ := hex.DecodeString(nodeID)
	var wantID cluster.NodeId
	copy(wantID[:], wantRaw)
	if _, ok := client.params.NewNodesSet[wantID]; !ok {
		t.Error("NewNodesSet missing expected node id")
	}
}

func TestMalformedCommand(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	addr := serve(t, client)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("bogus\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !strings.HasPrefix(reply, "ERR ") {
		t.Fatalf("reply = %q, want ERR prefix", reply)
	}
}

func TestSessionCreationError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: cluster.ErrHasActiveSessions}
	addr := serve(t, client)

	nodeID := strings.Repeat("aa", 32)
	sig := strings.Repeat("bb", 65)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("setchange " + nodeID + " " + sig + " " + sig + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !strings.HasPrefix(reply, "ERR ") {
		t.Fatalf("reply = %q, want ERR prefix", reply)
	}
	if !errors.Is(client.err, cluster.ErrHasActiveSessions) {
		t.Fatal("sanity check failed")
	}
}
