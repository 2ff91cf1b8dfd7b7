// ssnoded is a demo key-server node: it loads a cluster configuration, wires
// its identity, storage and transport, and serves cluster coordination
// traffic over TCP until interrupted.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ssnode/cluster/internal/admin"
	"github.com/ssnode/cluster/internal/cluster"
	"github.com/ssnode/cluster/internal/config"
	"github.com/ssnode/cluster/internal/identity"
	ssmetrics "github.com/ssnode/cluster/internal/metrics"
	"github.com/ssnode/cluster/internal/notify"
	"github.com/ssnode/cluster/internal/sessionsim"
	"github.com/ssnode/cluster/internal/storage"
	"github.com/ssnode/cluster/internal/transport"
	appversion "github.com/ssnode/cluster/internal/version"
)

// shutdownTimeout bounds how long the metrics server is given to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logger := newLogger(cfg.Log)
	logger.Info("ssnoded starting",
		slog.String("version", appversion.Version),
		slog.String("listen_addr", cfg.Node.ListenAddr),
		slog.String("metrics_addr", cfg.Metrics.Addr))

	self, err := loadIdentity(cfg.Node)
	if err != nil {
		logger.Error("failed to load node identity", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("node identity loaded", slog.String("node_id", self.NodeID().String()))

	peers, err := peerList(cfg.Peers)
	if err != nil {
		logger.Error("failed to parse peer list", slog.String("error", err.Error()))
		return 1
	}

	tn, err := transport.NewTCPNetwork(self.NodeID(), cfg.Node.ListenAddr, peers, logger)
	if err != nil {
		logger.Error("failed to start transport", slog.String("error", err.Error()))
		return 1
	}

	reg := prometheus.NewRegistry()
	collector := ssmetrics.NewCollector(reg)

	adminAddress, err := adminAddr(cfg.Admin)
	if err != nil {
		logger.Error("failed to parse admin address", slog.String("error", err.Error()))
		return 1
	}

	keyStorage := storage.NewMemoryKeyStorage()
	aclStorage := storage.PermissiveAclStorage{}

	clus := cluster.NewCluster(cluster.Config{
		Self:               self.NodeID(),
		SelfKeyPair:        self,
		AdminAddress:       adminAddress,
		KeyStorage:         keyStorage,
		AclStorage:         aclStorage,
		Connections:        tn,
		SetChangeConnector: notify.NewLogSetChangeConnector(logger),
		Creators:           sessionsim.NewCreators(keyStorage, aclStorage, adminAddress, sessionsim.Faults{}),
		Metrics:            collector,
		Logger:             logger,
	})

	clus.Client().SessionListenerRegistrar().RegisterListener(notify.NewLogListener(logger))

	if err := runServers(cfg, clus, tn, reg, logger); err != nil {
		logger.Error("ssnoded exited with error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// loadIdentity derives this node's signing identity from cfg, generating a
// fresh one if no seed is configured, and verifying it against node_id_hex
// when one was provided.
func loadIdentity(cfg config.NodeConfig) (*identity.KeyPair, error) {
	seed, err := cfg.Seed()
	if err != nil {
		return nil, err
	}

	var kp *identity.KeyPair
	if seed == nil {
		kp, err = identity.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate identity: %w", err)
		}
	} else {
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("node.seed_hex must decode to %d bytes, got %d", ed25519.SeedSize, len(seed))
		}
		var seedArr [ed25519.SeedSize]byte
		copy(seedArr[:], seed)
		kp = identity.FromSeed(seedArr)
	}

	expected, ok, err := cfg.ExpectedNodeID()
	if err != nil {
		return nil, err
	}
	if ok {
		if err := kp.CheckNodeID(cluster.NodeId(expected)); err != nil {
			return nil, err
		}
	}

	return kp, nil
}

func peerList(peers []config.PeerConfig) ([]transport.Peer, error) {
	out := make([]transport.Peer, 0, len(peers))
	for _, p := range peers {
		id, ok, err := (config.NodeConfig{NodeIDHex: p.NodeIDHex}).ExpectedNodeID()
		if err != nil {
			return nil, fmt.Errorf("peer %s: %w", p.Addr, err)
		}
		if !ok {
			return nil, fmt.Errorf("peer %s: node_id_hex must not be empty", p.Addr)
		}
		out = append(out, transport.Peer{ID: cluster.NodeId(id), Addr: p.Addr})
	}
	return out, nil
}

func adminAddr(cfg config.AdminConfig) (*cluster.Address, error) {
	if cfg.AddressHex == "" {
		return nil, nil
	}
	raw, err := decodeHex20(cfg.AddressHex)
	if err != nil {
		return nil, fmt.Errorf("admin.address_hex: %w", err)
	}
	addr := cluster.Address(raw)
	return &addr, nil
}

func decodeHex20(s string) ([20]byte, error) {
	var out [20]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("must decode to %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// runServers drains inbound transport messages into the router, serves
// Prometheus metrics over HTTP, and blocks until an interrupt or terminate
// signal triggers a graceful shutdown.
func runServers(cfg *config.Config, clus *cluster.Cluster, tn *transport.TCPNetwork, reg *prometheus.Registry, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		router := clus.Router()
		inbound := tn.Inbound()
		for {
			select {
			case msg, ok := <-inbound:
				if !ok {
					return nil
				}
				router.Process(msg)
			case <-gCtx.Done():
				return nil
			}
		}
	})

	var adminLn net.Listener
	if cfg.Admin.ListenAddr != "" {
		lc := net.ListenConfig{}
		ln, err := lc.Listen(gCtx, "tcp", cfg.Admin.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen admin on %s: %w", cfg.Admin.ListenAddr, err)
		}
		adminLn = ln

		g.Go(func() error {
			logger.Info("admin listener listening", slog.String("addr", cfg.Admin.ListenAddr))
			listener := admin.NewTextListener(clus.Client(), logger)
			if err := listener.Serve(adminLn); err != nil && !errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("serve admin listener: %w", err)
			}
			return nil
		})
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr), slog.String("path", cfg.Metrics.Path))
		lc := net.ListenConfig{}
		ln, err := lc.Listen(gCtx, "tcp", cfg.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("listen metrics on %s: %w", cfg.Metrics.Addr, err)
		}
		if err := metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, tn, metricsSrv, adminLn, logger)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

func gracefulShutdown(ctx context.Context, tn *transport.TCPNetwork, metricsSrv *http.Server, adminLn net.Listener, logger *slog.Logger) error {
	logger.Info("initiating graceful shutdown")

	tn.Close()
	if adminLn != nil {
		adminLn.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}
