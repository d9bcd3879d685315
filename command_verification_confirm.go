package sesam

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ConfirmVerificationMessage struct {
	Token      string `json:"token" doc:"Verification token from the emailed link."`
	OnResponse func(resp *ConfirmVerificationResponse)
}

func (e ConfirmVerificationMessage) Type() string { return "user.verification_confirm" }

type ConfirmVerificationResponse struct {
	User *User
}

// ConfirmVerificationHandler redeems a verification ticket. Redemption is a
// single conditional UPDATE that checks the expiry and clears the ticket, so
// a token can be consumed at most once. Unknown, expired, and already-used
// tokens all fail with the same error.
type ConfirmVerificationHandler struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

func NewConfirmVerificationHandler(repo RepositoryManager) *ConfirmVerificationHandler {
	return &ConfirmVerificationHandler{
		repo: repo,
		now:  time.Now,
	}
}

func (h *ConfirmVerificationHandler) WithLogger(l Logger) *ConfirmVerificationHandler {
	h.logger = l
	return h
}

func (h *ConfirmVerificationHandler) WithActivitySink(sink ActivitySink) *ConfirmVerificationHandler {
	h.activity = sink
	return h
}

func (h *ConfirmVerificationHandler) WithClock(now func() time.Time) *ConfirmVerificationHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ConfirmVerificationHandler) Execute(ctx context.Context, event ConfirmVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmVerificationHandler) execute(ctx context.Context, event ConfirmVerificationMessage) error {
	if event.Token == "" {
		return ErrTicketInvalidOrExpired
	}

	resp := &ConfirmVerificationResponse{}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().ConsumeVerificationTx(ctx, tx, event.Token, h.now())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrTicketInvalidOrExpired
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to redeem verification token")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email verification")
	}

	recordActivity(ctx, h.activity, h.getLogger(), ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor:     ActorRef{ID: resp.User.ID.String(), Type: "user"},
		UserID:    resp.User.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ConfirmVerificationHandler) getLogger() Logger {
	if h.logger != nil {
		return h.logger
	}
	return defLogger{}
}
