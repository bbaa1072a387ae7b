package rtdb

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"plant-monitor/internal/domain/port"
)

// Store адаптер Firebase Realtime Database
type Store struct {
	client *db.Client
}

// NewStore подключается к базе по ключу сервисного аккаунта.
// Пустой credentialsFile означает Application Default Credentials.
func NewStore(ctx context.Context, databaseURL, credentialsFile string) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("firebase database url is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "init firebase app")
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "init realtime database client")
	}

	return &Store{client: client}, nil
}

// Get читает значение по пути
func (s *Store) Get(ctx context.Context, path string, dest any) error {
	return errors.Wrapf(s.client.NewRef(path).Get(ctx, dest), "get %q", path)
}

// Set заменяет значение по пути
func (s *Store) Set(ctx context.Context, path string, value any) error {
	return errors.Wrapf(s.client.NewRef(path).Set(ctx, value), "set %q", path)
}

// Update сливает поля; nil-значения удаляют поля на стороне базы
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return errors.Wrapf(s.client.NewRef(path).Update(ctx, fields), "update %q", path)
}

var _ port.Store = (*Store)(nil)
