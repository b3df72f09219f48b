package models

const (
	DeletedLogin    = "User deleted"
	DeletedUsername = "User deleted"
	DeletedBio      = "deleted"
)

// DeletedSecret is written over salt and key of a tombstoned user.
var DeletedSecret = []byte("deleted")

type User struct {
	UUID         string  `db:"uuid" validate:"required"`
	Login        string  `db:"login" validate:"required"`
	PasswordHash string  `db:"password_hash"`
	Username     *string `db:"username"`
	IsBot        bool    `db:"is_bot"`
	AuthID       string  `db:"auth_id"`
	TokenTTL     int64   `db:"token_ttl"`
	Email        *string `db:"email"`
	Avatar       []byte  `db:"avatar"`
	Bio          *string `db:"bio"`
	Salt         []byte  `db:"salt"`
	Key          []byte  `db:"hash_key"`
	Deleted      bool    `db:"deleted"`
}

// Tombstone overwrites every identifying field of the user. The row itself is
// kept so flows and messages that reference it stay valid. filler replaces the
// password digest and auth token, it should be unpredictable.
func (u *User) Tombstone(filler string) {
	username := DeletedUsername
	bio := DeletedBio
	email := ""

	u.Login = DeletedLogin
	u.PasswordHash = filler
	u.AuthID = filler
	u.Username = &username
	u.Email = &email
	u.Avatar = []byte{}
	u.Bio = &bio
	u.Salt = append([]byte(nil), DeletedSecret...)
	u.Key = append([]byte(nil), DeletedSecret...)
	u.Deleted = true
}
