package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"journal/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// EntryHandler handles HTTP requests for journal entries.
type EntryHandler struct {
	entryService *services.EntryService
	validate     *validator.Validate
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryService *services.EntryService) *EntryHandler {
	return &EntryHandler{
		entryService: entryService,
		validate:     validator.New(),
	}
}

// RegisterRoutes registers the entry routes. All of them require auth.
// The literal paths are registered before /:id; Fiber matches in
// registration order.
func (h *EntryHandler) RegisterRoutes(router fiber.Router) {
	entryRoutes := router.Group("/entries")
	entryRoutes.Post("/", h.HandleCreateEntry)
	entryRoutes.Get("/", h.HandleGetEntries)
	entryRoutes.Get("/range", h.HandleGetEntriesRange)
	entryRoutes.Get("/on-this-day", h.HandleOnThisDay)
	entryRoutes.Get("/dates-with-entries", h.HandleDatesWithEntries)
	entryRoutes.Put("/:id", h.HandleUpdateEntry)
	entryRoutes.Delete("/:id", h.HandleDeleteEntry)
}

// CreateEntryRequest represents the request body for creating an entry.
type CreateEntryRequest struct {
	EntryType   string  `json:"entry_type" validate:"required"`
	Content     *string `json:"content"`
	MediaBase64 *string `json:"media_base64"`
	MediaMime   *string `json:"media_mime"`
	IsCompleted *bool   `json:"is_completed"`
	Mood        *string `json:"mood"`
	EntryDate   string  `json:"entry_date" validate:"required,datetime=2006-01-02"`
}

// UpdateEntryRequest represents a partial update; absent fields stay unchanged.
type UpdateEntryRequest struct {
	Content     *string `json:"content"`
	IsCompleted *bool   `json:"is_completed"`
	Mood        *string `json:"mood"`
}

// HandleCreateEntry creates a new entry owned by the authenticated user.
func (h *EntryHandler) HandleCreateEntry(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var req CreateEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	input := services.CreateEntryInput{
		EntryType:   req.EntryType,
		Content:     req.Content,
		MediaBase64: req.MediaBase64,
		MediaMime:   req.MediaMime,
		Mood:        req.Mood,
		EntryDate:   req.EntryDate,
	}
	if req.IsCompleted != nil {
		input.IsCompleted = *req.IsCompleted
	}

	entry, err := h.entryService.Create(userID, input)
	if err != nil {
		log.Printf("Error creating entry for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create entry",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// HandleGetEntries lists the user's entries, optionally for one exact date,
// in creation order.
func (h *EntryHandler) HandleGetEntries(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	entryDate := c.Query("entry_date")
	if entryDate != "" {
		if _, err := time.Parse("2006-01-02", entryDate); err != nil {
			return unprocessable(c, "entry_date must be a YYYY-MM-DD date")
		}
	}

	entries, err := h.entryService.List(userID, entryDate)
	if err != nil {
		log.Printf("Error listing entries for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve entries",
		})
	}
	return c.JSON(entries)
}

// HandleGetEntriesRange lists entries dated within [start, end] inclusive.
func (h *EntryHandler) HandleGetEntriesRange(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	start := c.Query("start")
	end := c.Query("end")
	if _, err := time.Parse("2006-01-02", start); err != nil {
		return unprocessable(c, "start must be a YYYY-MM-DD date")
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		return unprocessable(c, "end must be a YYYY-MM-DD date")
	}

	entries, err := h.entryService.ListRange(userID, start, end)
	if err != nil {
		log.Printf("Error listing entry range for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve entries",
		})
	}
	return c.JSON(entries)
}

// HandleOnThisDay lists entries from prior years sharing today's month/day.
func (h *EntryHandler) HandleOnThisDay(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	entries, err := h.entryService.OnThisDay(userID)
	if err != nil {
		log.Printf("Error listing on-this-day entries for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve entries",
		})
	}
	return c.JSON(entries)
}

// HandleDatesWithEntries returns the distinct ISO dates carrying entries in
// a month, for calendar rendering.
func (h *EntryHandler) HandleDatesWithEntries(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	month := c.QueryInt("month")
	year := c.QueryInt("year")
	if month < 1 || month > 12 {
		return unprocessable(c, "month must be between 1 and 12")
	}
	if year <= 0 {
		return unprocessable(c, "year is required")
	}

	dates, err := h.entryService.DatesWithEntries(userID, month, year)
	if err != nil {
		log.Printf("Error listing entry dates for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve entry dates",
		})
	}
	return c.JSON(dates)
}

// HandleUpdateEntry applies a partial update to the user's entry.
func (h *EntryHandler) HandleUpdateEntry(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	entryID, err := c.ParamsInt("id")
	if err != nil || entryID <= 0 {
		return unprocessable(c, "entry id must be a positive integer")
	}

	var req UpdateEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, "Invalid request body")
	}

	entry, err := h.entryService.Update(userID, uint(entryID), services.UpdateEntryInput{
		Content:     req.Content,
		IsCompleted: req.IsCompleted,
		Mood:        req.Mood,
	})
	if err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Entry not found",
			})
		}
		log.Printf("Error updating entry %d for user %d: %v", entryID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update entry",
		})
	}
	return c.JSON(entry)
}

// HandleDeleteEntry deletes the user's entry.
func (h *EntryHandler) HandleDeleteEntry(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	entryID, err := c.ParamsInt("id")
	if err != nil || entryID <= 0 {
		return unprocessable(c, "entry id must be a positive integer")
	}

	if err := h.entryService.Delete(userID, uint(entryID)); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Entry not found",
			})
		}
		log.Printf("Error deleting entry %d for user %d: %v", entryID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete entry",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// unprocessable reports a malformed request body or query parameter.
func unprocessable(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"message": message,
	})
}

// validationFailed reports per-field validator errors.
func validationFailed(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
