package notify

import (
	"log/slog"

	"github.com/ssnode/cluster/internal/cluster"
)

// LogSetChangeConnector logs every servers-set-change session created on
// this node, standing in for the external migration machinery that would
// otherwise attach to it and drive the member addition/removal itself.
type LogSetChangeConnector struct {
	logger *slog.Logger
}

// NewLogSetChangeConnector builds a LogSetChangeConnector. If logger is
// nil, slog.Default() is used.
func NewLogSetChangeConnector(logger *slog.Logger) *LogSetChangeConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSetChangeConnector{logger: logger.With(slog.String("component", "notify"))}
}

var _ cluster.ServersSetChangeCreatorConnector = (*LogSetChangeConnector)(nil)

func (c *LogSetChangeConnector) SetKeyServersSetChangeSession(session cluster.ServersSetChangeSession) {
	c.logger.Info("servers-set-change session created", slog.Any("session_id", session.ID()))
}
