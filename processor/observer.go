package processor

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/logger"
)

// Observer receives processor lifecycle events. Implementations are called
// on the processor's goroutine and must not block.
type Observer interface {
	CommandReceived(cmd ld.Command)
	ResponseEmitted(resp ld.Response)
	// IngestError reports a non-fatal error event from the current pass.
	IngestError(cmd ld.Command, err error)
	// PassCompleted reports a pass that reached End.
	PassCompleted(cmd ld.Command, stats ingest.Stats, elapsed time.Duration)
	// PassStalled reports a stream that closed without End.
	PassStalled(cmd ld.Command, stats ingest.Stats)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) CommandReceived(ld.Command)                            {}
func (NopObserver) ResponseEmitted(ld.Response)                           {}
func (NopObserver) IngestError(ld.Command, error)                         {}
func (NopObserver) PassCompleted(ld.Command, ingest.Stats, time.Duration) {}
func (NopObserver) PassStalled(ld.Command, ingest.Stats)                  {}

// Observers fans events out to each member in order.
type Observers []Observer

func (o Observers) CommandReceived(cmd ld.Command) {
	for _, x := range o {
		x.CommandReceived(cmd)
	}
}

func (o Observers) ResponseEmitted(resp ld.Response) {
	for _, x := range o {
		x.ResponseEmitted(resp)
	}
}

func (o Observers) IngestError(cmd ld.Command, err error) {
	for _, x := range o {
		x.IngestError(cmd, err)
	}
}

func (o Observers) PassCompleted(cmd ld.Command, stats ingest.Stats, elapsed time.Duration) {
	for _, x := range o {
		x.PassCompleted(cmd, stats, elapsed)
	}
}

func (o Observers) PassStalled(cmd ld.Command, stats ingest.Stats) {
	for _, x := range o {
		x.PassStalled(cmd, stats)
	}
}

// LogObserver writes processor events to a zap logger.
type LogObserver struct {
	log *zap.SugaredLogger
}

func NewLogObserver(log *zap.SugaredLogger) *LogObserver {
	return &LogObserver{log: log}
}

func (l *LogObserver) CommandReceived(cmd ld.Command) {
	l.log.Debugw("Command received",
		logger.FieldCommandID, cmd.ID,
		logger.FieldCommand, cmd.Summary())
}

func (l *LogObserver) ResponseEmitted(resp ld.Response) {
	l.log.Debugw("Response emitted",
		logger.FieldCommandID, resp.Command.ID,
		logger.FieldCommand, resp.Command.Summary(),
		"success", resp.Success,
		"message", resp.Message)
}

func (l *LogObserver) IngestError(cmd ld.Command, err error) {
	l.log.Warnw("Error processing triple store",
		logger.FieldCommandID, cmd.ID,
		logger.FieldError, err)
}

func (l *LogObserver) PassCompleted(cmd ld.Command, stats ingest.Stats, elapsed time.Duration) {
	l.log.Infow("Ingestion completed",
		logger.FieldCommandID, cmd.ID,
		"quads", stats.Quads,
		"resources", stats.Resources,
		"prefixes", stats.Prefixes,
		"errors", stats.Errors,
		logger.FieldDurationMS, elapsed.Milliseconds())
}

func (l *LogObserver) PassStalled(cmd ld.Command, stats ingest.Stats) {
	l.log.Warnw("Quad stream closed before end; index stays loading",
		logger.FieldCommandID, cmd.ID,
		"quads", stats.Quads,
		"errors", stats.Errors)
}
