// Package notify delivers best-effort notifications for application
// lifecycle events. Dispatch never blocks and never returns an error: the
// lifecycle transition is already committed by the time an event reaches the
// dispatcher, so delivery failures are logged and dropped.
package notify

import (
	"fmt"
	"sync"

	"github.com/freelancehub/backend/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event is a typed notification payload.
type Event interface {
	eventName() string
}

// ApplicationSubmitted fires after a freelancer's application is committed.
type ApplicationSubmitted struct {
	ProjectID    uuid.UUID
	ProjectTitle string
	FreelancerID uuid.UUID
	ClientID     uuid.UUID
}

func (ApplicationSubmitted) eventName() string { return "application.submitted" }

// ApplicationDecided fires after a decision is committed, once per affected
// application (the decided one and each auto-rejected one).
type ApplicationDecided struct {
	ProjectID     uuid.UUID
	ProjectTitle  string
	ApplicationID uuid.UUID
	Decision      models.ApplicationStatus
	FreelancerID  uuid.UUID
	ClientID      uuid.UUID
}

func (ApplicationDecided) eventName() string { return "application.decided" }

// UserDirectory resolves recipient contact details. Satisfied by
// database.UserRepo.
type UserDirectory interface {
	FindByID(id uuid.UUID) (*models.User, error)
}

// EmailSender is an outbound email channel.
type EmailSender interface {
	SendEmail(subject, body string, recipients []string) error
}

// SMSSender is an outbound SMS channel.
type SMSSender interface {
	SendSMS(to, body string) error
}

type Notifier struct {
	events chan Event
	users  UserDirectory
	email  EmailSender
	sms    SMSSender
	logger zerolog.Logger
	wg     sync.WaitGroup
}

type Option func(*Notifier)

func WithEmail(sender EmailSender) Option {
	return func(n *Notifier) { n.email = sender }
}

func WithSMS(sender SMSSender) Option {
	return func(n *Notifier) { n.sms = sender }
}

func WithBuffer(size int) Option {
	return func(n *Notifier) { n.events = make(chan Event, size) }
}

func New(users UserDirectory, opts ...Option) *Notifier {
	n := &Notifier{
		events: make(chan Event, 256),
		users:  users,
		logger: log.With().Str("component", "notifier").Logger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Start launches the delivery worker.
func (n *Notifier) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for event := range n.events {
			n.deliver(event)
		}
	}()
}

// Dispatch queues an event without blocking. When the buffer is saturated
// the event is dropped and logged; notification loss is preferable to
// stalling a committed lifecycle transition.
func (n *Notifier) Dispatch(event Event) {
	select {
	case n.events <- event:
	default:
		n.logger.Warn().Str("event", event.eventName()).Msg("notification buffer full, dropping event")
	}
}

// Close stops accepting events and waits for queued deliveries to drain.
func (n *Notifier) Close() {
	close(n.events)
	n.wg.Wait()
}

func (n *Notifier) deliver(event Event) {
	switch e := event.(type) {
	case ApplicationSubmitted:
		n.notify(e.ClientID,
			fmt.Sprintf("New application for %q", e.ProjectTitle),
			fmt.Sprintf("A freelancer applied to your project %q.", e.ProjectTitle))
	case ApplicationDecided:
		switch e.Decision {
		case models.ApplicationAccepted:
			n.notify(e.FreelancerID,
				fmt.Sprintf("You were selected for %q", e.ProjectTitle),
				fmt.Sprintf("Your application for %q was accepted. The project is now assigned to you.", e.ProjectTitle))
			n.notify(e.ClientID,
				fmt.Sprintf("Project %q assigned", e.ProjectTitle),
				fmt.Sprintf("Your project %q is now assigned.", e.ProjectTitle))
		case models.ApplicationRejected:
			n.notify(e.FreelancerID,
				fmt.Sprintf("Update on your application for %q", e.ProjectTitle),
				fmt.Sprintf("Your application for %q was not selected.", e.ProjectTitle))
		}
	default:
		n.logger.Warn().Str("event", event.eventName()).Msg("unhandled event type")
	}
}

func (n *Notifier) notify(userID uuid.UUID, subject, body string) {
	user, err := n.users.FindByID(userID)
	if err != nil {
		n.logger.Error().Err(err).Stringer("userID", userID).Msg("could not resolve notification recipient")
		return
	}
	if n.email != nil && user.Email != "" {
		if err := n.email.SendEmail(subject, body, []string{user.Email}); err != nil {
			n.logger.Error().Err(err).Str("email", user.Email).Msg("email notification failed")
		}
	}
	if n.sms != nil && user.Phone != "" {
		if err := n.sms.SendSMS(user.Phone, subject); err != nil {
			n.logger.Error().Err(err).Str("phone", user.Phone).Msg("sms notification failed")
		}
	}
}
