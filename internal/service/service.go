package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/softside/user-message/internal/domain"
	"github.com/softside/user-message/internal/store"

	"github.com/google/uuid"
)

type Service struct {
	store *store.Store
	now   func() time.Time
}

func New(st *store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Send stores a new message and advances the contact for the pair to point
// at it, in one transaction. Body may be empty at this layer; rejecting
// blank messages is left to the transport.
func (s *Service) Send(ctx context.Context, sender, receiver uuid.UUID, body string) (domain.Message, error) {
	if sender == uuid.Nil || receiver == uuid.Nil {
		return domain.Message{}, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	if sender == receiver {
		return domain.Message{}, fmt.Errorf("%w: sender and receiver must differ", ErrInvalidRequest)
	}

	msg := domain.Message{
		ID:         uuid.New(),
		Body:       body,
		SenderID:   sender,
		ReceiverID: receiver,
		SentAt:     s.now().UTC(),
	}
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Messages().Create(ctx, &msg); err != nil {
			return err
		}
		_, err := tx.Contacts().UpsertLatest(ctx, sender, receiver, msg.ID)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// ConversationBetween returns viewer's view of the thread with other, most
// recent first.
func (s *Service) ConversationBetween(ctx context.Context, viewer, other uuid.UUID) ([]domain.Message, error) {
	if viewer == uuid.Nil || other == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	return s.store.Messages().ConversationBetween(ctx, viewer, other)
}

func (s *Service) CountUnreadFor(ctx context.Context, user uuid.UUID) (int64, error) {
	if user == uuid.Nil {
		return 0, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	return s.store.Messages().CountUnreadFor(ctx, user)
}

func (s *Service) CountUnreadBetween(ctx context.Context, from, to uuid.UUID) (int64, error) {
	if from == uuid.Nil || to == uuid.Nil {
		return 0, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	return s.store.Messages().CountUnreadBetween(ctx, from, to)
}

// MarkRead sets the message's read timestamp. Only the receiver may read a
// message; a message already read keeps its original timestamp.
func (s *Service) MarkRead(ctx context.Context, id, reader uuid.UUID) error {
	if id == uuid.Nil || reader == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidRequest)
	}
	msg, err := s.store.Messages().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if msg.ReceiverID != reader {
		return ErrNotParticipant
	}
	if msg.ReadAt != nil {
		return nil
	}
	_, err = s.store.Messages().MarkRead(ctx, id, reader, s.now().UTC())
	return err
}

// DeleteForUser hides the message from user only: the sender flag when user
// sent it, the receiver flag when user received it. Each flag is set at most
// once and the row itself is never removed.
func (s *Service) DeleteForUser(ctx context.Context, id, user uuid.UUID) error {
	if id == uuid.Nil || user == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidRequest)
	}
	msg, err := s.store.Messages().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	switch user {
	case msg.SenderID:
		if msg.SenderDeletedAt != nil {
			return nil
		}
		_, err = s.store.Messages().SetSenderDeleted(ctx, id, user, s.now().UTC())
	case msg.ReceiverID:
		if msg.ReceiverDeletedAt != nil {
			return nil
		}
		_, err = s.store.Messages().SetReceiverDeleted(ctx, id, user, s.now().UTC())
	default:
		return ErrNotParticipant
	}
	return err
}

func (s *Service) ContactsFor(ctx context.Context, user uuid.UUID) ([]domain.Contact, error) {
	if user == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	return s.store.Contacts().ContactsFor(ctx, user)
}
