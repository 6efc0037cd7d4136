package domain

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotParticipant is returned when a user id is passed for a contact the
// user is not a party to.
var ErrNotParticipant = errors.New("user is not a participant of this contact")

// Message is the fact of record: an append-only row with two independent
// per-party soft-delete timestamps. Rows are never physically removed.
type Message struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Body              string     `gorm:"type:text;not null"`
	SenderID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_pair_sent,priority:1"`
	ReceiverID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_pair_sent,priority:2;index:idx_messages_receiver_unread"`
	SentAt            time.Time  `gorm:"not null;index:idx_messages_pair_sent,priority:3"`
	ReadAt            *time.Time `gorm:"type:timestamptz"`
	SenderDeletedAt   *time.Time `gorm:"type:timestamptz"`
	ReceiverDeletedAt *time.Time `gorm:"type:timestamptz"`
}

// Contact is the per-pair thread index entry. FromUserID/ToUserID keep the
// direction of the first message; PairLo/PairHi hold the same two ids in
// canonical order, and the unique index on them is what makes the pair
// unique regardless of who messaged first.
type Contact struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	FromUserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contacts_directed,priority:1"`
	ToUserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contacts_directed,priority:2"`
	PairLo          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contacts_pair,priority:1"`
	PairHi          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contacts_pair,priority:2"`
	LatestMessageID uuid.UUID `gorm:"type:uuid;not null"`
	LatestMessage   Message   `gorm:"foreignKey:LatestMessageID"`
}

// CanonicalPair returns the two user ids in lexicographic order.
func CanonicalPair(a, b uuid.UUID) (lo, hi uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// OppositeUser returns the participant other than user, independent of which
// side of the row the user is stored on.
func (c *Contact) OppositeUser(user uuid.UUID) (uuid.UUID, error) {
	switch user {
	case c.FromUserID:
		return c.ToUserID, nil
	case c.ToUserID:
		return c.FromUserID, nil
	}
	return uuid.Nil, ErrNotParticipant
}
