package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/estuportal/portalchat/internal/logging"
	"github.com/estuportal/portalchat/internal/store"
)

// Submission errors returned before the store is contacted.
var (
	ErrEmptyContent  = errors.New("message is empty")
	ErrNoCounterpart = errors.New("no conversation selected")
)

// SubmitError reports a store failure. The draft still holds Content.
type SubmitError struct {
	Counterpart string
	Content     string
	Err         error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("send to %s failed: %v", e.Counterpart, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Refresher triggers an out-of-band fetch cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Gateway sends drafts to the store on behalf of the local user.
type Gateway struct {
	store     store.MessageStore
	user      string
	refresher Refresher
	metrics   *Metrics
	logger    zerolog.Logger
}

// NewGateway creates a Gateway. refresher may be nil.
func NewGateway(st store.MessageStore, localUser string, refresher Refresher, metrics *Metrics) *Gateway {
	return &Gateway{
		store:     st,
		user:      localUser,
		refresher: refresher,
		metrics:   metrics,
		logger:    logging.WithUser(logging.Component("gateway"), localUser),
	}
}

// Submit appends the draft as a message to counterpart. On success the
// draft is cleared, unless it was edited while the append was in flight,
// and exactly one refresh is triggered; on failure the
// draft is left untouched and a *SubmitError is returned. Nothing is
// retried.
func (g *Gateway) Submit(ctx context.Context, counterpart string, draft *Draft) error {
	content := draft.Text()
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	counterpart = strings.TrimSpace(counterpart)
	if counterpart == "" {
		return ErrNoCounterpart
	}

	logger := logging.WithCounterpart(g.logger, counterpart).With().
		Str("submission", uuid.NewString()).
		Logger()

	if err := g.store.Append(ctx, g.user, counterpart, content); err != nil {
		g.metrics.submission(ResultRejected)
		logger.Warn().Err(err).Msg("submission failed; draft kept")
		return &SubmitError{Counterpart: counterpart, Content: content, Err: err}
	}
	g.metrics.submission(ResultOK)
	if !draft.ClearIf(content) {
		logger.Debug().Msg("draft edited during submission; kept")
	}
	logger.Debug().Int("bytes", len(content)).Msg("message submitted")

	if g.refresher == nil {
		return nil
	}
	if err := g.refresher.Refresh(ctx); err != nil {
		if errors.Is(err, ErrNotActive) {
			logger.Debug().Msg("scheduler inactive; skipping refresh")
		} else {
			logger.Warn().Err(err).Msg("refresh after submission failed")
		}
	}
	return nil
}
