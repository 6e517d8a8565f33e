package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateEnquiry inserts a pending booking enquiry and fills its ID.
func (s *Store) CreateEnquiry(ctx context.Context, enq *BookingEnquiry) error {
	enq.Status = EnquiryPending
	if _, err := s.db.NewInsert().Model(enq).Exec(ctx); err != nil {
		return fmt.Errorf("insert enquiry: %w", err)
	}
	return nil
}

// MarkEnquirySent records that the enquiry reached the organizer.
func (s *Store) MarkEnquirySent(ctx context.Context, id int64) error {
	res, err := s.db.NewUpdate().
		Model((*BookingEnquiry)(nil)).
		Set("status = ?", EnquirySent).
		Set("sent_at = ?", time.Now().UTC()).
		Where("be.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark enquiry sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("enquiry %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetEnquiry loads one enquiry with its event and organizer.
func (s *Store) GetEnquiry(ctx context.Context, id int64) (BookingEnquiry, Event, Organizer, error) {
	var enq BookingEnquiry
	err := s.db.NewSelect().Model(&enq).Where("be.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BookingEnquiry{}, Event{}, Organizer{}, fmt.Errorf("enquiry %d: %w", id, ErrNotFound)
		}
		return BookingEnquiry{}, Event{}, Organizer{}, fmt.Errorf("load enquiry: %w", err)
	}

	var event Event
	if err := s.db.NewSelect().Model(&event).Where("e.id = ?", enq.EventID).Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return BookingEnquiry{}, Event{}, Organizer{}, fmt.Errorf("load enquiry event: %w", err)
	}
	var organizer Organizer
	if err := s.db.NewSelect().Model(&organizer).Where("o.id = ?", enq.OrganizerID).Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return BookingEnquiry{}, Event{}, Organizer{}, fmt.Errorf("load enquiry organizer: %w", err)
	}
	return enq, event, organizer, nil
}

// RecordReply stores the organizer's answer on the enquiry.
func (s *Store) RecordReply(ctx context.Context, id int64, reply string) error {
	res, err := s.db.NewUpdate().
		Model((*BookingEnquiry)(nil)).
		Set("status = ?", EnquiryReplied).
		Set("reply = ?", reply).
		Set("replied_at = ?", time.Now().UTC()).
		Where("be.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record reply: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("enquiry %d: %w", id, ErrNotFound)
	}
	return nil
}
