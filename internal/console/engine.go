// Package console runs the interactive session once the wizard has frozen
// the session settings: operator lines are echoed and fanned out to every
// Tx characteristic while inbound notifications are appended concurrently.
package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/transcript"
)

// Link is the part of the link manager the console drives
type Link interface {
	EnsureConnected(ctx context.Context) error
	InitializeSubscriptions(ctx context.Context, rx []gatt.Characteristic) error
	Inbound() <-chan transcript.Line
	Write(ctx context.Context, tx []gatt.Characteristic, text string) error
	Disconnect()
}

// Input delivers one operator line per submission. Closing the channel
// quits the session.
type Input interface {
	Lines() <-chan string
}

// Runner runs a session over an input source. Presenters take a Runner
// so they can be tested without a link.
type Runner interface {
	Run(ctx context.Context, in Input) error
}

var _ Runner = (*Engine)(nil)

// Engine drives one console session
type Engine struct {
	link     Link
	settings gatt.SessionSettings
	buf      *transcript.Buffer
}

// New creates an engine for the frozen settings
func New(link Link, settings gatt.SessionSettings, buf *transcript.Buffer) *Engine {
	return &Engine{link: link, settings: settings, buf: buf}
}

// Title returns the console window title
func Title(version string, d gatt.Device) string {
	return fmt.Sprintf("NUSig %s - Connected to %s", version, d.Label())
}

// Run connects, subscribes and then serves the session until input closes
// or ctx is cancelled. A failed connect is reported and retried lazily on
// the next write; the session stays interactive. On exit the session's own
// work is cancelled before the link is torn down.
func (e *Engine) Run(ctx context.Context, in Input) error {
	if err := e.link.EnsureConnected(ctx); err != nil {
		e.buf.Append(transcript.NewStatusf("Connection to device was lost and could not be reestablished: %v", gatt.Cause(err)))
	}
	if err := e.link.InitializeSubscriptions(ctx, e.settings.Rx()); err != nil {
		logging.Debug("Subscriptions deferred until reconnect", zap.Error(err))
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(sessionCtx)

	g.Go(func() error {
		inbound := e.link.Inbound()
		for {
			select {
			case <-gctx.Done():
				return nil
			case l := <-inbound:
				e.buf.Append(l)
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		lines := in.Lines()
		for {
			select {
			case <-gctx.Done():
				return nil
			case text, ok := <-lines:
				if !ok {
					logging.Info("Console input closed")
					return nil
				}
				e.Submit(gctx, text)
			}
		}
	})

	err := g.Wait()
	cancel()
	e.link.Disconnect()
	return err
}

// Submit echoes one operator line and writes it to every Tx target. Empty
// lines are sent too.
func (e *Engine) Submit(ctx context.Context, text string) {
	e.buf.Append(transcript.NewOutbound(text))
	if err := e.link.Write(ctx, e.settings.Tx(), text); err != nil {
		logging.Debug("Send incomplete", zap.Error(err))
	}
}
