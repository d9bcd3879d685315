package sesam

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StampVerificationSQL installs a fresh verification ticket on an account and
// records the send time for cooldown enforcement.
var StampVerificationSQL = `UPDATE "sesam_users" AS "usr"
SET
	"verification_token" = ?,
	"verification_token_expires_at" = ?,
	"last_verification_email_sent_at" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

// ConsumeVerificationSQL redeems a verification ticket. The expiry check and
// the ticket clear happen in one statement, so concurrent redemptions of the
// same token resolve to a single winner.
var ConsumeVerificationSQL = `UPDATE "sesam_users" AS "usr"
SET
	"is_verified" = TRUE,
	"verification_token" = NULL,
	"verification_token_expires_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."verification_token" = ?
AND
	"usr"."verification_token_expires_at" > ?
RETURNING *;`

// StampResetSQL installs a fresh password-reset ticket on an account.
var StampResetSQL = `UPDATE "sesam_users" AS "usr"
SET
	"password_reset_token" = ?,
	"password_reset_expires_at" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

// ConsumeResetSQL redeems a password-reset ticket and installs the new
// password hash in the same conditional statement.
var ConsumeResetSQL = `UPDATE "sesam_users" AS "usr"
SET
	"password_hash" = ?,
	"password_reset_token" = NULL,
	"password_reset_expires_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."password_reset_token" = ?
AND
	"usr"."password_reset_expires_at" > ?
RETURNING *;`

// OverwriteUnverifiedSQL replaces the name and password of an account that
// never finished verification, so re-registration behaves like a retry.
var OverwriteUnverifiedSQL = `UPDATE "sesam_users" AS "usr"
SET
	"name" = ?,
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
AND
	"usr"."is_verified" = FALSE
RETURNING *;`

// Users is the persistence surface the lifecycle engine needs. Ticket
// operations are transactional raw statements; the rest rides on the generic
// repository.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	OverwriteUnverifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, name, passwordHash string) (*User, error)

	StampVerificationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt, sentAt time.Time) (*User, error)
	ConsumeVerificationTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error)

	StampResetTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) (*User, error)
	ConsumeResetTx(ctx context.Context, tx bun.IDB, token, passwordHash string, now time.Time) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository builds the Users repository over a bun DB handle.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) OverwriteUnverifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, name, passwordHash string) (*User, error) {
	return a.rawOne(ctx, tx, OverwriteUnverifiedSQL, map[string]any{"id": id.String()}, name, passwordHash, id.String())
}

func (a *users) StampVerificationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt, sentAt time.Time) (*User, error) {
	return a.rawOne(ctx, tx, StampVerificationSQL, map[string]any{"id": id.String()}, token, expiresAt, sentAt, id.String())
}

func (a *users) ConsumeVerificationTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error) {
	return a.rawOne(ctx, tx, ConsumeVerificationSQL, nil, token, now)
}

func (a *users) StampResetTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) (*User, error) {
	return a.rawOne(ctx, tx, StampResetSQL, map[string]any{"id": id.String()}, token, expiresAt, id.String())
}

func (a *users) ConsumeResetTx(ctx context.Context, tx bun.IDB, token, passwordHash string, now time.Time) (*User, error) {
	return a.rawOne(ctx, tx, ConsumeResetSQL, nil, passwordHash, token, now)
}

func (a *users) rawOne(ctx context.Context, tx bun.IDB, sql string, meta map[string]any, args ...any) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		nf := repository.NewRecordNotFound()
		if meta != nil {
			nf = nf.WithMetadata(meta)
		}
		return nil, nf
	}

	return res[0], nil
}

func prepareUserDefaults(user *User) {
	if user == nil {
		return
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	if user.Role == "" {
		user.Role = RoleUser
	}

	user.Email = NormalizeEmail(user.Email)

	now := time.Now()
	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}
	if user.UpdatedAt == nil {
		user.UpdatedAt = &now
	}
}
