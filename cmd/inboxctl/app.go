package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/inbox"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/threads"
)

const (
	flagServer      = "server"
	flagAPIKey      = "api-key"
	flagViewerID    = "viewer-id"
	flagCustomer    = "customer"
	flagLogLevel    = "log-level"
	flagRecentLimit = "recent-limit"
	flagDebounce    = "debounce"
	flagOrdering    = "ordering"
	flagMaxLength   = "max-length"
	flagWatch       = "watch"
	flagFilter      = "filter"
	flagQuery       = "query"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "inboxctl",
		Usage: "Operate the ShopDesk support inbox from a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagServer,
				Sources: cli.EnvVars("INBOXCTL_SERVER"),
				Usage:   "Base URL of the ShopDesk server",
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    flagAPIKey,
				Sources: cli.EnvVars("INBOXCTL_API_KEY", "API_KEY"),
				Usage:   "API key sent as a bearer token",
			},
			&cli.StringFlag{
				Name:    flagViewerID,
				Sources: cli.EnvVars("INBOXCTL_VIEWER_ID", "SUPPORT_ID"),
				Usage:   "Participant id of the viewer",
				Value:   "support",
			},
			&cli.BoolFlag{
				Name:  flagCustomer,
				Usage: "View the inbox as a customer instead of staff",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Sources: cli.EnvVars("LOG_LEVEL"),
				Usage:   "Log level (debug|info|warn|error)",
				Value:   "warn",
			},
			&cli.IntFlag{
				Name:    flagRecentLimit,
				Sources: cli.EnvVars("RECENT_MESSAGE_LIMIT"),
				Usage:   "Size of the recent-message window",
				Value:   inbox.DefaultRecentLimit,
			},
			&cli.DurationFlag{
				Name:  flagDebounce,
				Usage: "Coalescing window for realtime refetches",
				Value: inbox.DefaultDebounceWindow,
			},
			&cli.StringFlag{
				Name:  flagOrdering,
				Usage: "Thread ordering (activity|new-first)",
				Value: threads.OrderByActivity.String(),
			},
			&cli.IntFlag{
				Name:    flagMaxLength,
				Sources: cli.EnvVars("MAX_MESSAGE_LENGTH"),
				Usage:   "Composer limit in characters",
				Value:   inbox.DefaultMaxLength,
			},
		},
		Commands: []*cli.Command{
			threadsCommand(),
			showCommand(),
			sendCommand(),
			profilesCommand(),
		},
	}
}

func threadsCommand() *cli.Command {
	return &cli.Command{
		Name:  "threads",
		Usage: "List conversation threads",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagFilter, Usage: "Thread filter (all|unread)", Value: string(threads.FilterAll)},
			&cli.StringFlag{Name: flagQuery, Usage: "Only threads whose name or email contains the query"},
			&cli.BoolFlag{Name: flagWatch, Usage: "Keep the list updated from the realtime feed"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(ctx, cmd, cmd.Bool(flagWatch))
			if err != nil {
				return err
			}
			defer s.Close()

			s.controller.SetFilter(threads.ParseFilterMode(cmd.String(flagFilter)))
			s.controller.SetQuery(cmd.String(flagQuery))

			if err := s.controller.Start(ctx); err != nil {
				return err
			}
			s.out.threads(s.controller.Threads())

			if !cmd.Bool(flagWatch) {
				return nil
			}

			s.controller.OnChange(func() { s.out.threads(s.controller.Threads()) })
			s.controller.OnNotify(func(msg models.Message) { s.out.notification(msg) })
			return s.wait(ctx)
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one conversation and mark it as read",
		ArgsUsage: "<participant-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: flagWatch, Usage: "Keep printing new messages"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			participantID, err := participantArg(cmd)
			if err != nil {
				return err
			}

			s, err := openSession(ctx, cmd, cmd.Bool(flagWatch))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.controller.Start(ctx); err != nil {
				return err
			}

			view, err := s.controller.OpenThread(ctx, participantID)
			if err != nil {
				return err
			}
			defer view.Close()

			s.out.header(view.Thread(), s.controller.LoadState(participantID))
			printed := s.out.messagesFrom(view.Messages(), 0)

			if cmd.Bool(flagWatch) {
				view.OnScroll(func(string) {
					printed = s.out.messagesFrom(view.Messages(), printed)
				})
				if err := s.wait(ctx); err != nil {
					return err
				}
			}

			view.Wait()
			return nil
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a message, replying to the latest customer message when there is one",
		ArgsUsage: "<participant-id> <body...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			participantID, err := participantArg(cmd)
			if err != nil {
				return err
			}
			body := strings.Join(cmd.Args().Tail(), " ")

			s, err := openSession(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.controller.Start(ctx); err != nil {
				return err
			}

			view, err := s.controller.OpenThread(ctx, participantID)
			if err != nil {
				return err
			}
			defer view.Close()

			route, target := view.Route()
			view.Composer().SetDraft(body)
			msg, err := view.Send(ctx)
			if err != nil {
				return err
			}

			s.out.sent(route, target, msg)
			view.Wait()
			return nil
		},
	}
}

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List known profiles",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			profiles, err := s.store.ListAllProfiles(ctx)
			if err != nil {
				return err
			}
			s.out.profiles(profiles)
			return nil
		},
	}
}

func participantArg(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", fmt.Errorf("participant id is required")
	}
	return id, nil
}

func durationOrDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
