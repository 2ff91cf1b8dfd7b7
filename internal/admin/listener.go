// Package admin provides a minimal line-oriented TCP listener an operator
// can drive to start a servers-set-change session on a running node,
// standing in for whatever richer control plane a real deployment would
// front this with.
package admin

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/ssnode/cluster/internal/cluster"
)

// ErrMalformedCommand indicates a line didn't parse as a recognized command.
var ErrMalformedCommand = errors.New("admin: malformed command")

// TextListener accepts one line per connection of the form:
//
//	setchange <node_id_hex,node_id_hex,...> <old_set_signature_hex> <new_set_signature_hex>
//
// and starts a servers-set-change session on client through it, replying
// with "OK <migration-id>" or "ERR <message>".
type TextListener struct {
	client cluster.ClusterClient
	logger *slog.Logger
}

// NewTextListener builds a TextListener driving client. If logger is nil,
// slog.Default() is used.
func NewTextListener(client cluster.ClusterClient, logger *slog.Logger) *TextListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextListener{client: client, logger: logger.With(slog.String("component", "admin"))}
}

// Serve accepts connections on ln until it returns an error (including on
// ln.Close from another goroutine).
func (l *TextListener) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go l.handle(conn)
	}
}

func (l *TextListener) handle(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}

	reply, err := l.dispatch(strings.TrimSpace(line))
	if err != nil {
		l.logger.Warn("admin command failed", slog.String("error", err.Error()))
		fmt.Fprintf(conn, "ERR %s\n", err)
		return
	}
	fmt.Fprintf(conn, "OK %s\n", reply)
}

func (l *TextListener) dispatch(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "setchange" {
		return "", ErrMalformedCommand
	}

	newNodes, err := parseNodeSet(fields[1])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}

	oldSig, err := parseSignature(fields[2])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	newSig, err := parseSignature(fields[3])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}

	migrationID := uuid.New()
	var migrationBytes [32]byte
	copy(migrationBytes[:], migrationID[:])

	session, err := l.client.NewServersSetChangeSession(cluster.ServersSetChangeParams{
		MigrationID:     &migrationBytes,
		NewNodesSet:     newNodes,
		OldSetSignature: oldSig,
		NewSetSignature: newSig,
	})
	if err != nil {
		return "", err
	}

	l.logger.Info("servers-set-change session started",
		slog.String("migration_id", migrationID.String()),
		slog.Any("session_id", session.ID()))
	return migrationID.String(), nil
}

func parseNodeSet(s string) (map[cluster.NodeId]struct{}, error) {
	parts := strings.Split(s, ",")
	out := make(map[cluster.NodeId]struct{}, len(parts))
	for _, p := range parts {
		raw, err := hex.DecodeString(p)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("node id %q must decode to 32 bytes", p)
		}
		var id cluster.NodeId
		copy(id[:], raw)
		out[id] = struct{}{}
	}
	return out, nil
}

func parseSignature(s string) ([65]byte, error) {
	var out [65]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("signature must decode to %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
