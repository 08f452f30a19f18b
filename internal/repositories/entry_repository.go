package repositories

import "journal/internal/models"

// EntryRepository defines the interface for entry data access. Every method
// is owner-scoped: the userID argument becomes a user_id predicate on the
// underlying statement, so one user can never touch another user's rows.
type EntryRepository interface {
	Create(entry *models.Entry) error
	// ListByOwner returns the owner's entries ordered by creation time;
	// entryDate, when non-empty, restricts the list to one exact date.
	ListByOwner(userID uint, entryDate string) ([]models.Entry, error)
	// ListRange returns entries with start <= entry_date <= end, ordered by
	// entry_date then creation time. An inverted range yields an empty list.
	ListRange(userID uint, start, end string) ([]models.Entry, error)
	// OnThisDay returns entries whose entry_date ends with monthDay ("MM-DD")
	// excluding the one dated today, most recent first.
	OnThisDay(userID uint, monthDay, today string) ([]models.Entry, error)
	// DatesWithEntries returns the distinct entry dates sharing the given
	// "YYYY-MM-" prefix, ascending.
	DatesWithEntries(userID uint, prefix string) ([]string, error)
	GetByIDForOwner(id, userID uint) (*models.Entry, error)
	Save(entry *models.Entry) error
	Delete(id, userID uint) error
}
