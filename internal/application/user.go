package app

import (
	"context"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.SetState(state)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Subscribe включает уведомления о болезнях
func (s *UserService) Subscribe(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateSubscribed)
}

// Unsubscribe выключает уведомления
func (s *UserService) Unsubscribe(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateGuest)
}

// Subscribers чаты, которым нужно отправлять уведомления
func (s *UserService) Subscribers(ctx context.Context) ([]int64, error) {
	users, err := s.repo.Subscribed(ctx)
	if err != nil {
		return nil, err
	}

	chats := make([]int64, 0, len(users))
	for _, u := range users {
		chats = append(chats, u.ChatID)
	}
	return chats, nil
}
