package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Follow keeps the session in step with the cached connection file, so a
// wallet connect or disconnect run from another terminal reaches this
// session's subscribers. It blocks until ctx is done.
func (s *Session) Follow(ctx context.Context) error {
	path := filepath.Clean(s.opts.Store.Path())
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching connection: %w", err)
	}
	defer w.Close()

	// Editors and os.WriteFile may replace the file, so watch the directory.
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.log.Debug("following connection", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				s.reload(ctx)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("connection watch error", zap.Error(err))
		}
	}
}

// reload applies the cached connection without writing it back.
func (s *Session) reload(ctx context.Context) {
	conn, err := s.opts.Store.Load()
	if err != nil {
		// Most likely a half-written file; the next write event retries.
		s.log.Debug("reading connection", zap.Error(err))
		return
	}

	prev := s.Current()
	if conn == nil {
		if _, ok := prev.(Connected); ok {
			s.set(Disconnected{Reason: "disconnected elsewhere"}, EventDisconnected)
		}
		return
	}

	// The wallet may have been added by the process that wrote the file.
	if err := s.opts.Wallets.Reload(); err != nil {
		s.log.Warn("reloading wallets", zap.Error(err))
		return
	}
	next, err := s.resolve(ctx, conn.Wallet, conn.Network)
	if err != nil {
		s.log.Warn("ignoring cached connection", zap.String("wallet", conn.Wallet), zap.String("network", conn.Network), zap.Error(err))
		return
	}
	if p, ok := prev.(Connected); ok && p == next {
		return
	}
	s.set(next, transition(prev, next))
}
