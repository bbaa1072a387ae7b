package port

import "context"

// Store иерархическое key-value хранилище (Realtime Database).
// Пути разделяются "/", например "plants/p1".
type Store interface {
	// Get читает значение по пути в dest. Отсутствующее значение оставляет dest без изменений.
	Get(ctx context.Context, path string, dest any) error

	// Set заменяет значение по пути целиком
	Set(ctx context.Context, path string, value any) error

	// Update сливает поля с существующим значением; nil удаляет поле
	Update(ctx context.Context, path string, fields map[string]any) error
}
