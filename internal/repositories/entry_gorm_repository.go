package repositories

import (
	"errors"
	"fmt"

	"journal/internal/models"

	"gorm.io/gorm"
)

// GORMEntryRepository is a GORM implementation of EntryRepository.
type GORMEntryRepository struct {
	db *gorm.DB
}

// NewGORMEntryRepository creates a new instance of GORMEntryRepository.
func NewGORMEntryRepository(db *gorm.DB) *GORMEntryRepository {
	return &GORMEntryRepository{
		db: db,
	}
}

// Create inserts a new entry; the database assigns id and timestamps.
func (r *GORMEntryRepository) Create(entry *models.Entry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

// ListByOwner retrieves the owner's entries, optionally for one exact date.
func (r *GORMEntryRepository) ListByOwner(userID uint, entryDate string) ([]models.Entry, error) {
	q := r.db.Where("user_id = ?", userID)
	if entryDate != "" {
		q = q.Where("entry_date = ?", entryDate)
	}
	var entries []models.Entry
	if err := q.Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// ListRange retrieves entries dated within [start, end] inclusive.
// ISO date strings compare lexicographically in calendar order.
func (r *GORMEntryRepository) ListRange(userID uint, start, end string) ([]models.Entry, error) {
	var entries []models.Entry
	err := r.db.
		Where("user_id = ? AND entry_date >= ? AND entry_date <= ?", userID, start, end).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entries in range: %w", err)
	}
	return entries, nil
}

// OnThisDay retrieves entries sharing the given month/day from other dates.
// substr(entry_date, 6, 5) is the "MM-DD" part; substr is available in both
// sqlite and postgres.
func (r *GORMEntryRepository) OnThisDay(userID uint, monthDay, today string) ([]models.Entry, error) {
	var entries []models.Entry
	err := r.db.
		Where("user_id = ? AND substr(entry_date, 6, 5) = ? AND entry_date <> ?", userID, monthDay, today).
		Order("entry_date DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list on-this-day entries: %w", err)
	}
	return entries, nil
}

// DatesWithEntries retrieves the distinct entry dates under a "YYYY-MM-" prefix.
func (r *GORMEntryRepository) DatesWithEntries(userID uint, prefix string) ([]string, error) {
	var dates []string
	err := r.db.Model(&models.Entry{}).
		Where("user_id = ? AND entry_date LIKE ?", userID, prefix+"%").
		Distinct().
		Order("entry_date ASC").
		Pluck("entry_date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entry dates: %w", err)
	}
	return dates, nil
}

// GetByIDForOwner retrieves one entry, constrained to the owner. A foreign
// entry id is indistinguishable from a missing one.
func (r *GORMEntryRepository) GetByIDForOwner(id, userID uint) (*models.Entry, error) {
	var entry models.Entry
	if err := r.db.First(&entry, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
	}
	return &entry, nil
}

// Save persists all fields of an existing entry and refreshes updated_at.
func (r *GORMEntryRepository) Save(entry *models.Entry) error {
	res := r.db.Save(entry)
	if res.Error != nil {
		return fmt.Errorf("failed to save entry %d: %w", entry.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an entry, constrained to the owner.
func (r *GORMEntryRepository) Delete(id, userID uint) error {
	res := r.db.Delete(&models.Entry{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
