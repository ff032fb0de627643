package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// SupportID is the support desk identity used throughout the fixtures
const SupportID = "support"

// BaseTime is a fixed point in time fixtures are built around
var BaseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// MessageBuilder creates test Message instances with fluent API
type MessageBuilder struct {
	message models.Message
}

// NewMessageBuilder creates a customer message to the support desk
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		message: models.Message{
			ID:         uuid.NewString(),
			SenderID:   "cust-1",
			ReceiverID: SupportID,
			Body:       "Where is my order?",
			Status:     models.StatusUnread,
			CreatedAt:  BaseTime,
		},
	}
}

// WithID sets the message ID
func (b *MessageBuilder) WithID(id string) *MessageBuilder {
	b.message.ID = id
	return b
}

// FromCustomer makes the message a customer message written by participantID
func (b *MessageBuilder) FromCustomer(participantID string) *MessageBuilder {
	b.message.SenderID = participantID
	b.message.ReceiverID = SupportID
	b.message.IsAdminReply = false
	return b
}

// FromStaff makes the message a staff reply to participantID
func (b *MessageBuilder) FromStaff(participantID string) *MessageBuilder {
	b.message.SenderID = SupportID
	b.message.ReceiverID = participantID
	b.message.IsAdminReply = true
	b.message.AuthorDisplayName = "Customer Support"
	return b
}

// WithBody sets the message body
func (b *MessageBuilder) WithBody(body string) *MessageBuilder {
	b.message.Body = body
	return b
}

// WithAuthor sets the author display name
func (b *MessageBuilder) WithAuthor(name string) *MessageBuilder {
	b.message.AuthorDisplayName = name
	return b
}

// Read marks the message as read
func (b *MessageBuilder) Read() *MessageBuilder {
	b.message.Status = models.StatusRead
	return b
}

// At sets the creation time relative to BaseTime
func (b *MessageBuilder) At(offset time.Duration) *MessageBuilder {
	b.message.CreatedAt = BaseTime.Add(offset)
	return b
}

// WithCreatedAt sets the creation time
func (b *MessageBuilder) WithCreatedAt(t time.Time) *MessageBuilder {
	b.message.CreatedAt = t
	return b
}

// Build returns the constructed Message
func (b *MessageBuilder) Build() *models.Message {
	msg := b.message
	return &msg
}

// BuildValue returns the constructed Message by value
func (b *MessageBuilder) BuildValue() models.Message {
	return b.message
}

// ProfileBuilder creates test Profile instances with fluent API
type ProfileBuilder struct {
	profile models.Profile
}

// NewProfileBuilder creates a customer profile with sensible defaults
func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{
		profile: models.Profile{
			ID:        "cust-1",
			FullName:  "Ada Lovelace",
			Email:     "ada@example.com",
			Role:      models.RoleCustomer,
			CreatedAt: BaseTime,
			UpdatedAt: BaseTime,
		},
	}
}

// WithID sets the profile ID
func (b *ProfileBuilder) WithID(id string) *ProfileBuilder {
	b.profile.ID = id
	return b
}

// WithName sets the full name
func (b *ProfileBuilder) WithName(name string) *ProfileBuilder {
	b.profile.FullName = name
	return b
}

// WithEmail sets the email address
func (b *ProfileBuilder) WithEmail(email string) *ProfileBuilder {
	b.profile.Email = email
	return b
}

// Admin makes the profile a staff account
func (b *ProfileBuilder) Admin() *ProfileBuilder {
	b.profile.Role = models.RoleAdmin
	return b
}

// Build returns the constructed Profile
func (b *ProfileBuilder) Build() *models.Profile {
	p := b.profile
	return &p
}

// Conversation returns a customer question followed by a staff reply, a
// minute apart, for participantID
func Conversation(participantID string) []models.Message {
	return []models.Message{
		NewMessageBuilder().FromCustomer(participantID).WithBody("Hi, is this in stock?").BuildValue(),
		NewMessageBuilder().FromStaff(participantID).WithBody("Yes, ships today.").At(time.Minute).BuildValue(),
	}
}

// Profiles returns a small profile directory with one staff account
func Profiles() []models.Profile {
	return []models.Profile{
		*NewProfileBuilder().Build(),
		*NewProfileBuilder().WithID("cust-2").WithName("Grace Hopper").WithEmail("grace@example.com").Build(),
		*NewProfileBuilder().WithID(SupportID).WithName("Customer Support").WithEmail("").Admin().Build(),
	}
}
