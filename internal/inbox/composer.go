package inbox

import (
	"strings"
	"sync"
	"unicode/utf8"

	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
)

// DefaultMaxLength is the composer limit in characters
const DefaultMaxLength = 2000

// Composer holds the draft of an outgoing message
type Composer struct {
	maxLength int

	mu    sync.Mutex
	draft strings.Builder
}

// NewComposer creates a composer; maxLength <= 0 selects DefaultMaxLength
func NewComposer(maxLength int) *Composer {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Composer{maxLength: maxLength}
}

func (c *Composer) MaxLength() int {
	return c.maxLength
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.String()
}

func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Reset()
	c.draft.WriteString(text)
}

// Insert appends text at the end of the draft
func (c *Composer) Insert(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.WriteString(text)
}

// Backspace removes the last character of the draft
func (c *Composer) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.draft.String()
	if s == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(s)
	c.draft.Reset()
	c.draft.WriteString(s[:len(s)-size])
}

func (c *Composer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Reset()
}

// Validate checks the draft before it is dispatched
func (c *Composer) Validate() error {
	draft := c.Draft()
	if strings.TrimSpace(draft) == "" {
		return apperrors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(draft) > c.maxLength {
		return apperrors.ErrMessageTooLong
	}
	return nil
}
