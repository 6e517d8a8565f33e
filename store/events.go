package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SearchEvents returns published events matching the filter, soonest
// first.
func (s *Store) SearchEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	q := s.db.NewSelect().
		Model((*Event)(nil)).
		Where("e.status = ?", EventPublished)

	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		q = q.Where("(e.name ILIKE ? OR e.description ILIKE ?)", pattern, pattern)
	}
	if f.Location != "" {
		q = q.Where("e.city ILIKE ?", "%"+f.Location+"%")
	}
	if f.Category != "" {
		q = q.Where("e.category ILIKE ?", f.Category)
	}
	if f.Date != "" {
		q = q.Where("to_char(e.start_at, 'YYYY-MM-DD') LIKE ?", f.Date+"%")
	}

	var events []Event
	if err := q.Order("e.start_at ASC").Limit(limit).Scan(ctx, &events); err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

// ResolveEvent finds one published event by ID or by name, along with
// its organizer. Name matching is a case-insensitive containment so a
// partial name from conversation still resolves.
func (s *Store) ResolveEvent(ctx context.Context, eventID int64, eventName string) (Event, Organizer, error) {
	var event Event
	q := s.db.NewSelect().
		Model(&event).
		Where("e.status = ?", EventPublished)
	switch {
	case eventID > 0:
		q = q.Where("e.id = ?", eventID)
	case eventName != "":
		q = q.Where("e.name ILIKE ?", "%"+eventName+"%").Order("e.start_at ASC")
	default:
		return Event{}, Organizer{}, fmt.Errorf("resolve event: %w", ErrNotFound)
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, Organizer{}, fmt.Errorf("resolve event: %w", ErrNotFound)
		}
		return Event{}, Organizer{}, fmt.Errorf("resolve event: %w", err)
	}

	var organizer Organizer
	err := s.db.NewSelect().
		Model(&organizer).
		Where("o.id = ?", event.OrganizerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, Organizer{}, fmt.Errorf("organizer %d: %w", event.OrganizerID, ErrNotFound)
		}
		return Event{}, Organizer{}, fmt.Errorf("load organizer: %w", err)
	}
	return event, organizer, nil
}
