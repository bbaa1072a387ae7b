package entity

import "time"

// UserState состояние пользователя бота
type UserState string

const (
	StateGuest      UserState = "guest"      // Не подписан на уведомления
	StateSubscribed UserState = "subscribed" // Получает уведомления о болезнях
)

// User представляет пользователя Telegram-бота
type User struct {
	ID        int64     // Telegram User ID
	ChatID    int64     // Telegram Chat ID
	State     UserState // Текущее состояние пользователя
	UpdatedAt time.Time // Когда состояние менялось последний раз
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateGuest,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
	u.UpdatedAt = time.Now()
}

// Subscribed сообщает, получает ли пользователь уведомления
func (u *User) Subscribed() bool {
	return u.State == StateSubscribed
}
