package sesam

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RequestVerificationMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Email of the account awaiting verification."`
	OnResponse func(resp *RequestVerificationResponse)
}

func (e RequestVerificationMessage) Type() string { return "user.verification_request" }

type RequestVerificationResponse struct {
	User *User
}

// RequestVerificationHandler issues a replacement verification ticket for an
// account that never confirmed its email. Issuing a new ticket invalidates
// the previous one since the account holds a single verification slot.
// Resends are throttled by Config.EmailResendCooldown.
type RequestVerificationHandler struct {
	repo     RepositoryManager
	config   *Config
	sender   EmailSender
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

func NewRequestVerificationHandler(repo RepositoryManager, config *Config, sender EmailSender) *RequestVerificationHandler {
	return &RequestVerificationHandler{
		repo:   repo,
		config: config,
		sender: sender,
		now:    time.Now,
	}
}

func (h *RequestVerificationHandler) WithLogger(l Logger) *RequestVerificationHandler {
	h.logger = l
	return h
}

func (h *RequestVerificationHandler) WithActivitySink(sink ActivitySink) *RequestVerificationHandler {
	h.activity = sink
	return h
}

func (h *RequestVerificationHandler) WithClock(now func() time.Time) *RequestVerificationHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *RequestVerificationHandler) Execute(ctx context.Context, event RequestVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestVerificationHandler) execute(ctx context.Context, event RequestVerificationMessage) error {
	resp := &RequestVerificationResponse{}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	now := h.now()
	var ticket string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
		}

		if user.Verified {
			return ErrAlreadyVerified
		}

		if remaining := CooldownRemaining(user.LastVerificationEmailSent, h.config.EmailResendCooldown, now); remaining > 0 {
			return NewCooldownError(remaining)
		}

		token, err := GenerateTicket()
		if err != nil {
			return err
		}

		user, err = h.repo.Users().StampVerificationTx(ctx, tx, user.ID, token, now.Add(h.config.VerificationTTL), now)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification token")
		}

		resp.User = user
		ticket = token
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to request verification email")
	}

	sendEmail(h.getLogger(), h.config.EmailSendTimeout, "verification", func(ctx context.Context) error {
		return h.sender.SendVerificationEmail(ctx, resp.User.Email, resp.User.Name, ticket)
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestVerificationHandler) getLogger() Logger {
	if h.logger != nil {
		return h.logger
	}
	return defLogger{}
}
