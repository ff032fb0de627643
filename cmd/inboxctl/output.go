package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/inbox"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/threads"
)

const (
	previewLength = 48
	timeLayout    = "2006-01-02 15:04"
)

// printer renders inbox state as plain text. Feed callbacks may print
// concurrently, so every method holds the lock.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) threads(list []threads.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(list) == 0 {
		fmt.Fprintln(p.w, "No conversations")
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTICIPANT\tNAME\tUNREAD\tLAST ACTIVITY\tPREVIEW")
	for i := range list {
		t := &list[i]
		last := "-"
		if at := t.LastActivity(); !at.IsZero() {
			last = at.Local().Format(timeLayout)
		}
		name := t.Name
		if t.IsNew {
			name += " (new)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", t.ParticipantID, name, t.UnreadCount, last, preview(t.LastMessage.Body))
	}
	tw.Flush()
}

func (p *printer) header(t threads.Thread, state inbox.LoadState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "%s <%s>", t.Name, t.ParticipantID)
	if t.Email != "" {
		fmt.Fprintf(p.w, " %s", t.Email)
	}
	fmt.Fprintf(p.w, " [%s]\n", state)
}

// messagesFrom prints msgs[from:] and returns the new printed count
func (p *printer) messagesFrom(msgs []models.Message, from int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if from < 0 || from > len(msgs) {
		from = 0
	}
	for i := from; i < len(msgs); i++ {
		m := &msgs[i]
		author := m.AuthorDisplayName
		if author == "" {
			author = m.SenderID
		}
		fmt.Fprintf(p.w, "[%s] %s: %s\n", m.CreatedAt.Local().Format(timeLayout), author, m.Body)
	}
	return len(msgs)
}

func (p *printer) notification(msg models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "New message from %s: %s\n", msg.ParticipantID(), preview(msg.Body))
}

func (p *printer) sent(route inbox.Route, target string, msg *models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := ""
	if msg != nil {
		id = msg.ID
	}
	switch route {
	case inbox.RouteReply:
		fmt.Fprintf(p.w, "Replied to message %s: %s\n", target, id)
	default:
		fmt.Fprintf(p.w, "Sent to %s: %s\n", target, id)
	}
}

func (p *printer) profiles(list []models.Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(list) == 0 {
		fmt.Fprintln(p.w, "No profiles")
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tUPDATED")
	for i := range list {
		pr := &list[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", pr.ID, pr.DisplayLabel(), pr.Email, pr.Role, pr.UpdatedAt.Local().Format(time.DateOnly))
	}
	tw.Flush()
}

// preview flattens a body to one line and cuts it to previewLength characters
func preview(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	r := []rune(body)
	if len(r) <= previewLength {
		return body
	}
	return string(r[:previewLength-1]) + "…"
}
