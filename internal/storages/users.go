package storage

import (
	"context"
	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/mtp-service/internal/models"
)

var userColumns = []string{
	"uuid", "login", "password_hash", "username", "is_bot", "auth_id", "token_ttl",
	"email", "avatar", "bio", "salt", "hash_key", "deleted",
}

var userConstraints = map[string]error{
	UsersPrimaryKey:   ErrUserAlreadyExists,
	UsersLiveLoginKey: ErrLoginAlreadyExists,
}

func (s *PostgresStore) GetUserByUUID(ctx context.Context, uuid string) (*models.User, error) {
	return s.getUser(ctx, sq.Eq{"uuid": uuid}, ErrUserNotFound)
}

// GetUserByLogin prefers a live record over tombstones sharing the login.
func (s *PostgresStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.getUser(ctx, sq.Eq{"login": login}, ErrLoginNotFound)
}

func (s *PostgresStore) getUser(ctx context.Context, where sq.Sqlizer, notFound error) (*models.User, error) {
	query, args, err := sq.Select(userColumns...).
		From("users").
		Where(where).
		OrderBy("deleted ASC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	user := models.User{}
	err = s.scope.GetContext(ctx, &user, query, args...)

	if err != nil {
		return nil, readError(err, notFound)
	}
	return &user, nil
}

func (s *PostgresStore) GetAllUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := sq.Select(userColumns...).
		From("users").
		OrderBy("login", "uuid").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0)
	if err = s.scope.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, readError(err, ErrUserNotFound)
	}
	return users, nil
}

func (s *PostgresStore) AddUser(ctx context.Context, user *models.User) error {
	if err := s.checkRecord(user); err != nil {
		return err
	}

	query, args, err := sq.Insert("users").
		Columns(userColumns...).
		Values(
			user.UUID, user.Login, user.PasswordHash, user.Username, user.IsBot, user.AuthID, user.TokenTTL,
			user.Email, user.Avatar, user.Bio, user.Salt, user.Key, user.Deleted,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.scope.ExecContext(ctx, query, args...)
	return mapConstraint(err, userConstraints)
}

// UpdateUser overwrites every mutable column of the record with user's values.
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	query, args, err := sq.Update("users").
		SetMap(map[string]interface{}{
			"login":         user.Login,
			"password_hash": user.PasswordHash,
			"username":      user.Username,
			"is_bot":        user.IsBot,
			"auth_id":       user.AuthID,
			"token_ttl":     user.TokenTTL,
			"email":         user.Email,
			"avatar":        user.Avatar,
			"bio":           user.Bio,
			"salt":          user.Salt,
			"hash_key":      user.Key,
			"deleted":       user.Deleted,
		}).
		Where(sq.Eq{"uuid": user.UUID}).
		Where(sq.Eq{"deleted": false}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	res, err := s.scope.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err, userConstraints)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return writeError(err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (*models.TableCount, error) {
	query, args, err := sq.Select().
		Column(sq.Alias(sq.Select("count(*)").From("users"), "user_count")).
		Column(sq.Alias(sq.Select("count(*)").From("flows"), "flow_count")).
		Column(sq.Alias(sq.Select("count(*)").From("messages"), "message_count")).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	count := models.TableCount{}
	if err = s.scope.GetContext(ctx, &count, query, args...); err != nil {
		return nil, readError(err, ErrNotFound)
	}
	return &count, nil
}
