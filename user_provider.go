package sesam

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// IdentityProvider resolves and verifies identities for login.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// UserProvider verifies credentials against the Users repository.
type UserProvider struct {
	store  Users
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck runs a bcrypt comparison against a throwaway hash so a
// login against an unknown email costs the same as one against a known email.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash = RandomPasswordHash()
	})
	_ = ComparePasswordAndHash(password, dummyHash)
}

// VerifyIdentity finds the user, checks the password, and returns the
// identity. Unknown emails and wrong passwords fail identically; only an
// account that passed the password check learns it is unverified.
func (u UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			burnPasswordCheck(password)
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if !user.Verified {
		return nil, ErrEmailNotVerified
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByIdentifier accepts either a user id or an email address.
// Session subjects carry the id, login payloads carry the email.
func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var user *User
	var err error

	if id, perr := uuid.Parse(identifier); perr == nil {
		user, err = u.store.GetByID(ctx, id)
	} else {
		user, err = u.store.GetByEmail(ctx, identifier)
	}

	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

var _ IdentityProvider = UserProvider{}
