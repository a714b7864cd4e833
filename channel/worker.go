package channel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/logger"
	"github.com/teranos/ldx/processor"
	"github.com/teranos/ldx/transport"
)

// Worker is the client half of the isolated strategy. Commands are
// serialized onto a transport; response frames coming back are published
// to subscribers from a single receive goroutine.
type Worker struct {
	t    transport.Transport
	log  *zap.SugaredLogger
	subs subscribers

	onError func(error)

	sendMu sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	stop      func()
}

// NewWorker takes ownership of t and starts receiving.
func NewWorker(t transport.Transport, opts ...Option) *Worker {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		t:       t,
		log:     o.log,
		onError: o.onError,
		ctx:     ctx,
		cancel:  cancel,
	}
	w.wg.Add(1)
	go w.receiveLoop()
	return w
}

func (w *Worker) receiveLoop() {
	defer w.wg.Done()
	for {
		data, err := w.t.Receive(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			if errors.IsTransportClosed(err) {
				w.onError(errors.Wrap(err, "worker connection lost"))
				return
			}
			w.onError(err)
			continue
		}

		frame, err := Decode(data)
		if err != nil {
			w.onError(err)
			continue
		}
		switch frame.Type {
		case FrameResponse:
			w.subs.publish(*frame.Response)
		case FrameError:
			w.onError(errors.Wrap(errors.ErrRemote, frame.Error))
		default:
			w.onError(errors.WrapInvalidFrame(
				errors.Newf("unexpected %s frame", frame.Type), "worker receive"))
		}
	}
}

func (w *Worker) Submit(ctx context.Context, cmd ld.Command) error {
	if w.ctx.Err() != nil {
		return errors.Wrap(errors.ErrTransportClosed, "worker channel closed")
	}
	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if err := w.t.Send(ctx, data); err != nil {
		return errors.Wrapf(err, "submit %s", cmd.Summary())
	}
	return nil
}

func (w *Worker) Subscribe(h Handler) func() { return w.subs.add(h) }

// Close stops receiving and closes the transport. Responses still in
// flight are dropped.
func (w *Worker) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		err = w.t.Close()
		w.wg.Wait()
		if w.stop != nil {
			w.stop()
		}
	})
	return err
}

// Serve hosts a processor on t until ctx ends or t closes. Command frames
// are executed in arrival order; responses go back as response frames.
// Frames that cannot be decoded are answered with an error frame and
// otherwise ignored.
func Serve(ctx context.Context, t transport.Transport, parser ingest.Parser, opts ...Option) error {
	o := buildOptions(opts)
	log := o.log.With(logger.FieldComponent, "worker-host")

	var sendMu sync.Mutex
	send := func(data []byte) {
		sendMu.Lock()
		defer sendMu.Unlock()
		if err := t.Send(ctx, data); err != nil && !errors.IsTransportClosed(err) && ctx.Err() == nil {
			log.Warnw("Failed to send frame", logger.FieldError, err)
		}
	}

	emit := func(resp ld.Response) {
		data, err := EncodeResponse(resp)
		if err != nil {
			log.Errorw("Failed to encode response", logger.FieldCommandID, resp.Command.ID, logger.FieldError, err)
			send(EncodeError(err.Error()))
			return
		}
		send(data)
	}

	commands := make(chan ld.Command)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(commands)
		for {
			data, err := t.Receive(ctx)
			if err != nil {
				if ctx.Err() == nil && !errors.IsTransportClosed(err) {
					log.Warnw("Worker host receive failed", logger.FieldError, err)
				}
				return
			}
			cmd, err := DecodeCommand(data)
			if err != nil {
				log.Debugw("Rejected frame", logger.FieldError, err)
				send(EncodeError(err.Error()))
				continue
			}
			select {
			case commands <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	proc := processor.New(parser, emit, o.processorOptions()...)
	err := proc.Run(ctx, commands)
	<-readerDone
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// NewIsolated starts a processor on its own goroutine behind an in-memory
// pipe and returns the client half. The host shares nothing with the
// caller but serialized frames. Closing the worker stops the host.
func NewIsolated(ctx context.Context, parser ingest.Parser, opts ...Option) *Worker {
	client, host := transport.NewPipe(16)
	hostCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Serve(hostCtx, host, parser, opts...)
	}()

	w := NewWorker(client, opts...)
	w.stop = func() {
		cancel()
		<-done
	}
	return w
}
