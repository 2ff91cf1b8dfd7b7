// Package notify provides a ServiceListener implementation that logs
// completed sessions via slog, standing in for the outer service this
// cluster node ultimately reports to.
package notify

import (
	"log/slog"

	"github.com/ssnode/cluster/internal/cluster"
)

// LogListener logs every notification it receives, successes at info level
// and failures at warn level, with a
// "component" attribute scoping it to the notify subsystem, matching the
// logging convention used across this module's other packages.
type LogListener struct {
	logger *slog.Logger
}

// NewLogListener builds a LogListener. If logger is nil, slog.Default() is
// used.
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{logger: logger.With(slog.String("component", "notify"))}
}

var _ cluster.ServiceListener = (*LogListener)(nil)

func (l *LogListener) ServerKeyGenerated(result cluster.ServerKeyGenerationResult) {
	if result.Err != nil {
		l.logger.Warn("server key generation failed",
			slog.Any("key_id", result.KeyID),
			slog.Any("error", result.Err))
		return
	}
	l.logger.Info("server key generated",
		slog.Any("key_id", result.KeyID))
}

func (l *LogListener) DocumentKeyShadowRetrieved(result cluster.DocumentKeyShadowRetrievalResult) {
	if result.Err != nil {
		l.logger.Warn("document key shadow retrieval failed",
			slog.Any("key_id", result.KeyID),
			slog.Any("error", result.Err))
		return
	}
	l.logger.Info("document key shadow retrieved",
		slog.Any("key_id", result.KeyID))
}

// RecordingListener accumulates every notification it receives, for use in
// tests that need to assert on what fired without parsing log output.
type RecordingListener struct {
	KeyGenerations  []cluster.ServerKeyGenerationResult
	ShadowRetrieval []cluster.DocumentKeyShadowRetrievalResult
}

var _ cluster.ServiceListener = (*RecordingListener)(nil)

func (l *RecordingListener) ServerKeyGenerated(result cluster.ServerKeyGenerationResult) {
	l.KeyGenerations = append(l.KeyGenerations, result)
}

func (l *RecordingListener) DocumentKeyShadowRetrieved(result cluster.DocumentKeyShadowRetrievalResult) {
	l.ShadowRetrieval = append(l.ShadowRetrieval, result)
}
