package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"journal/internal/models"
	"journal/internal/repositories"
	"journal/pkg/rabbitmq"
)

// ErrEntryNotFound is returned when an entry id does not exist or belongs to
// a different user; the two cases are deliberately indistinguishable.
var ErrEntryNotFound = errors.New("entry not found")

// CreateEntryInput carries the caller-settable fields of a new entry.
// Pointer fields are optional.
type CreateEntryInput struct {
	EntryType   string
	Content     *string
	MediaBase64 *string
	MediaMime   *string
	IsCompleted bool
	Mood        *string
	EntryDate   string
}

// UpdateEntryInput carries a partial update: nil means "leave unchanged".
// Kind, date, and media are immutable after creation and have no fields here.
type UpdateEntryInput struct {
	Content     *string
	IsCompleted *bool
	Mood        *string
}

// EntryService handles business logic for journal entries. Every operation
// is scoped to the owning user. Mutations publish fire-and-forget events
// when a RabbitMQ client is configured.
type EntryService struct {
	entryRepo repositories.EntryRepository
	mqClient  *rabbitmq.Client

	// Now supplies "today" for on-this-day queries. Defaults to time.Now.
	Now func() time.Time
}

// NewEntryService creates a new EntryService. mqClient may be nil, in which
// case no events are published.
func NewEntryService(entryRepo repositories.EntryRepository, mqClient *rabbitmq.Client) *EntryService {
	return &EntryService{
		entryRepo: entryRepo,
		mqClient:  mqClient,
		Now:       time.Now,
	}
}

// Create persists a new entry owned by userID.
func (s *EntryService) Create(userID uint, input CreateEntryInput) (*models.Entry, error) {
	entry := &models.Entry{
		UserID:      userID,
		EntryType:   input.EntryType,
		Content:     input.Content,
		MediaBase64: input.MediaBase64,
		MediaMime:   input.MediaMime,
		IsCompleted: input.IsCompleted,
		Mood:        input.Mood,
		EntryDate:   input.EntryDate,
	}
	if err := s.entryRepo.Create(entry); err != nil {
		return nil, err
	}
	s.publish("entry.created", entry)
	return entry, nil
}

// List returns the user's entries, optionally filtered to one exact date.
func (s *EntryService) List(userID uint, entryDate string) ([]models.Entry, error) {
	return s.entryRepo.ListByOwner(userID, entryDate)
}

// ListRange returns entries dated within [start, end] inclusive. The range
// is not validated; an inverted range simply matches nothing.
func (s *EntryService) ListRange(userID uint, start, end string) ([]models.Entry, error) {
	return s.entryRepo.ListRange(userID, start, end)
}

// OnThisDay returns entries sharing today's month and day from other dates,
// today itself excluded, most recent first. The match is a plain calendar
// month/day comparison against the server's wall-clock date.
func (s *EntryService) OnThisDay(userID uint) ([]models.Entry, error) {
	today := s.Now().Format("2006-01-02")
	return s.entryRepo.OnThisDay(userID, today[5:], today)
}

// DatesWithEntries returns the distinct ISO dates carrying entries in the
// given month.
func (s *EntryService) DatesWithEntries(userID uint, month, year int) ([]string, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	return s.entryRepo.DatesWithEntries(userID, prefix)
}

// Update applies the provided fields to the user's entry and refreshes its
// updated_at. Omitted (nil) fields are left untouched.
func (s *EntryService) Update(userID, entryID uint, input UpdateEntryInput) (*models.Entry, error) {
	entry, err := s.entryRepo.GetByIDForOwner(entryID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	if input.Content != nil {
		entry.Content = input.Content
	}
	if input.IsCompleted != nil {
		entry.IsCompleted = *input.IsCompleted
	}
	if input.Mood != nil {
		entry.Mood = input.Mood
	}

	if err := s.entryRepo.Save(entry); err != nil {
		return nil, err
	}
	s.publish("entry.updated", entry)
	return entry, nil
}

// Delete removes the user's entry.
func (s *EntryService) Delete(userID, entryID uint) error {
	entry, err := s.entryRepo.GetByIDForOwner(entryID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	if err := s.entryRepo.Delete(entryID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	s.publish("entry.deleted", entry)
	return nil
}

// publish sends an entry lifecycle event. Publishing failures are logged and
// otherwise ignored; the entry mutation has already committed.
func (s *EntryService) publish(event string, entry *models.Entry) {
	if s.mqClient == nil {
		return
	}
	payload := map[string]interface{}{
		"entry_id":   entry.ID,
		"user_id":    entry.UserID,
		"entry_type": entry.EntryType,
		"entry_date": entry.EntryDate,
	}
	if err := s.mqClient.PublishEntryEvent(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event for entry %d: %v", event, entry.ID, err)
	}
}
