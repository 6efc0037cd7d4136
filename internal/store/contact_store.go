package store

import (
	"context"
	"errors"

	"github.com/softside/user-message/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContactStore struct{ db *gorm.DB }

func (s *Store) Contacts() *ContactStore { return &ContactStore{db: s.DB} }

func (c *ContactStore) findPair(ctx context.Context, a, b uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	err := c.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			a, b, b, a).
		First(&contact).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &contact, nil
}

// GetOrCreate is the only insert path for contacts. The insert targets the
// canonical pair_lo/pair_hi unique index with DO NOTHING, so two concurrent
// first messages between the same pair resolve to a single row: the loser
// sees zero rows affected and falls back to the lookup.
func (c *ContactStore) GetOrCreate(ctx context.Context, from, to, latestMessage uuid.UUID) (*domain.Contact, bool, error) {
	existing, err := c.findPair(ctx, from, to)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, false, err
	}

	lo, hi := domain.CanonicalPair(from, to)
	contact := domain.Contact{
		ID:              uuid.New(),
		FromUserID:      from,
		ToUserID:        to,
		PairLo:          lo,
		PairHi:          hi,
		LatestMessageID: latestMessage,
	}
	res := c.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_lo"}, {Name: "pair_hi"}},
			DoNothing: true,
		}).
		Create(&contact)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		winner, err := c.findPair(ctx, from, to)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	return &contact, true, nil
}

// UpsertLatest makes the contact for the pair point at latestMessage,
// creating the contact on first use.
func (c *ContactStore) UpsertLatest(ctx context.Context, from, to, latestMessage uuid.UUID) (*domain.Contact, error) {
	contact, created, err := c.GetOrCreate(ctx, from, to, latestMessage)
	if err != nil {
		return nil, err
	}
	if !created {
		err := c.db.WithContext(ctx).
			Model(&domain.Contact{}).
			Where("id = ?", contact.ID).
			Update("latest_message_id", latestMessage).Error
		if err != nil {
			return nil, err
		}
		contact.LatestMessageID = latestMessage
	}
	return contact, nil
}

// ContactsFor lists every contact the user is a party to, most recently
// active first. Lookup only; it never creates rows.
func (c *ContactStore) ContactsFor(ctx context.Context, user uuid.UUID) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := c.db.WithContext(ctx).
		Joins("JOIN messages ON messages.id = contacts.latest_message_id").
		Where("contacts.from_user_id = ? OR contacts.to_user_id = ?", user, user).
		Order("messages.sent_at DESC").
		Preload("LatestMessage").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}
