package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

// EventService owns events and their RSVPs.
type EventService struct {
	events   repository.EventRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewEventService(events repository.EventRepository, notifier Notifier, logger *slog.Logger) *EventService {
	return &EventService{events: events, notifier: notifier, logger: logger}
}

// Create validates and stores a new event for authorID.
func (s *EventService) Create(ctx context.Context, authorID, title string, startsAt time.Time) (*model.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "event title cannot be empty")
	}
	if startsAt.IsZero() {
		return nil, apperror.ValidationFailed("startsAt", "event start time is required")
	}

	event := &model.Event{
		AuthorID: authorID,
		Title:    title,
		StartsAt: startsAt,
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	s.logger.Info("event created",
		slog.String("eventID", event.ID),
		slog.String("authorID", authorID),
	)
	return event, nil
}

// Get fetches one event by ID.
func (s *EventService) Get(ctx context.Context, eventID string) (*model.Event, error) {
	return s.events.GetEventByID(ctx, eventID)
}

// ToggleRSVP flips userID's RSVP on an event. RSVPing notifies the organizer
// with event_rsvp unless the attendee is the organizer. Withdrawing is silent.
func (s *EventService) ToggleRSVP(ctx context.Context, userID, eventID string) (attending bool, err error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return false, err
	}

	created, err := s.events.CreateRSVP(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("creating rsvp: %w", err)
	}

	if !created {
		// Already attending → this toggle withdraws.
		if _, err := s.events.DeleteRSVP(ctx, eventID, userID); err != nil {
			return false, fmt.Errorf("deleting rsvp: %w", err)
		}
		return false, nil
	}

	s.logger.Info("event rsvp",
		slog.String("eventID", eventID),
		slog.String("userID", userID),
	)

	if event.AuthorID == userID {
		return true, nil
	}

	entity := model.Entity{Type: "event", ID: event.ID, Title: event.Title}
	if err := s.notifier.Notify(ctx, event.AuthorID, model.NotifEventRSVP, userID, entity); err != nil {
		s.logger.Warn("rsvp recorded but notification failed",
			slog.String("userID", userID),
			slog.String("eventID", eventID),
			slog.String("error", err.Error()),
		)
		return true, fmt.Errorf("%w: %s", ErrNotifyFailed, err)
	}

	return true, nil
}
