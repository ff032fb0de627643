package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/client"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/inbox"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/logger"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/threads"
)

// session wires an inbox controller to a remote server
type session struct {
	store      *client.HTTPStore
	controller *inbox.Controller
	out        *printer
	logger     *slog.Logger

	remote *realtime.RemoteFeed
	local  *realtime.Broker
}

// openSession connects to the server. With live set the controller follows
// the websocket change feed; otherwise it gets a local feed that never fires.
func openSession(ctx context.Context, cmd *cli.Command, live bool) (*session, error) {
	root := cmd.Root()
	log := logger.NewWithWriter(errWriter(root), root.String(flagLogLevel))

	store, err := client.NewHTTPStore(root.String(flagServer), root.String(flagAPIKey))
	if err != nil {
		return nil, err
	}

	s := &session{
		store:  store,
		out:    newPrinter(outWriter(root)),
		logger: log,
	}

	var feed realtime.Feed
	if live {
		remote, err := realtime.DialFeed(ctx, store.RealtimeURL(), store.AuthHeader(), log, nil)
		if err != nil {
			return nil, err
		}
		s.remote = remote
		feed = remote
	} else {
		s.local = realtime.NewBroker(log, nil)
		feed = s.local
	}

	viewer := threads.Viewer{
		ID:      root.String(flagViewerID),
		IsAdmin: !root.Bool(flagCustomer),
	}
	s.controller = inbox.NewController(store, feed, inbox.Options{
		Viewer:         viewer,
		RecentLimit:    int(root.Int(flagRecentLimit)),
		DebounceWindow: durationOrDefault(root.Duration(flagDebounce), inbox.DefaultDebounceWindow),
		Ordering:       threads.ParseOrdering(root.String(flagOrdering)),
		MaxLength:      int(root.Int(flagMaxLength)),
		Logger:         log,
	})
	s.controller.OnNotice(func(n inbox.Notice) {
		fmt.Fprintln(errWriter(root), "notice:", n.String())
	})

	return s, nil
}

// wait blocks until ctx is done or the remote feed drops
func (s *session) wait(ctx context.Context) error {
	if s.remote == nil {
		<-ctx.Done()
		return nil
	}
	select {
	case <-ctx.Done():
		return nil
	case <-s.remote.Done():
		if err := s.remote.Err(); err != nil && !errors.Is(err, realtime.ErrFeedClosed) {
			return fmt.Errorf("realtime feed lost: %w", err)
		}
		return nil
	}
}

// Close stops the controller and releases the feed
func (s *session) Close() {
	s.controller.Close()
	if s.remote != nil {
		if err := s.remote.Close(); err != nil {
			s.logger.Debug("failed to close realtime feed", slog.Any("error", err))
		}
	}
	if s.local != nil {
		s.local.Close()
	}
}

func outWriter(cmd *cli.Command) io.Writer {
	if cmd.Writer != nil {
		return cmd.Writer
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if cmd.ErrWriter != nil {
		return cmd.ErrWriter
	}
	return os.Stderr
}
