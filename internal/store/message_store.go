package store

import (
	"context"
	"time"

	"github.com/softside/user-message/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStore struct{ db *gorm.DB }

func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.DB} }

func (m *MessageStore) Create(ctx context.Context, msg *domain.Message) error {
	return m.db.WithContext(ctx).Create(msg).Error
}

func (m *MessageStore) Get(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var msg domain.Message
	if err := m.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// ConversationBetween returns viewer's view of the thread with other, most
// recent first. Messages the viewer sent stay visible until the viewer
// deletes them as sender; messages the viewer received stay visible until
// the viewer deletes them as receiver. The other party's flags never hide
// anything from this viewer.
func (m *MessageStore) ConversationBetween(ctx context.Context, viewer, other uuid.UUID) ([]domain.Message, error) {
	var msgs []domain.Message
	err := m.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ? AND sender_deleted_at IS NULL) OR (sender_id = ? AND receiver_id = ? AND receiver_deleted_at IS NULL)",
			viewer, other, other, viewer).
		Order("sent_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *MessageStore) CountUnreadFor(ctx context.Context, user uuid.UUID) (int64, error) {
	var total int64
	err := m.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("receiver_id = ? AND read_at IS NULL AND receiver_deleted_at IS NULL", user).
		Count(&total).Error
	return total, err
}

// CountUnreadBetween counts unread messages sent by from to to, gated on the
// sender's deletion flag. That gating matches the historical behavior this
// store replaces; receiver-facing totals come from CountUnreadFor.
func (m *MessageStore) CountUnreadBetween(ctx context.Context, from, to uuid.UUID) (int64, error) {
	var total int64
	err := m.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read_at IS NULL AND sender_deleted_at IS NULL", from, to).
		Count(&total).Error
	return total, err
}

// MarkRead sets read_at once. Reports whether a row changed; an already-read
// message leaves its original timestamp untouched.
func (m *MessageStore) MarkRead(ctx context.Context, id, receiver uuid.UUID, at time.Time) (bool, error) {
	res := m.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND receiver_id = ? AND read_at IS NULL", id, receiver).
		Update("read_at", at)
	return res.RowsAffected > 0, res.Error
}

func (m *MessageStore) SetSenderDeleted(ctx context.Context, id, sender uuid.UUID, at time.Time) (bool, error) {
	res := m.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND sender_id = ? AND sender_deleted_at IS NULL", id, sender).
		Update("sender_deleted_at", at)
	return res.RowsAffected > 0, res.Error
}

func (m *MessageStore) SetReceiverDeleted(ctx context.Context, id, receiver uuid.UUID, at time.Time) (bool, error) {
	res := m.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND receiver_id = ? AND receiver_deleted_at IS NULL", id, receiver).
		Update("receiver_deleted_at", at)
	return res.RowsAffected > 0, res.Error
}
