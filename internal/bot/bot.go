// Package bot implements the conversation logic: sign-up, help, cancel,
// image history queries and proactive movement alerts. Each conversation
// gets its own Session; nothing is shared between users.
package bot

import (
	"context"

	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/dmitrijs2005/intrusionbot/internal/metrics"
	"github.com/dmitrijs2005/intrusionbot/internal/records"
	"github.com/dmitrijs2005/intrusionbot/internal/watcher"
)

const (
	textSignedUp       = "UUID checked, notifications configured."
	textSignUpFailed   = "Sorry, I could not reach your device records right now. Please try again later."
	textHelp           = "Hey there, I heard you needed help. This is the Intrusion Detector bot. You can ask me questions about images from your home, if movement was detected, and I'll also send you notifications. To leave, please type the phrase \"Cancel\"."
	textCancelPrompt   = "This will cancel all future messages you will receive from the bot. Are you sure?"
	textTerminated     = "Service terminated."
	textNotTerminated  = "Service not terminated."
	textDefaultCount   = "Setting the number of images to default: 5"
	textNotSignedUp    = "Please sign up first by sending 'UUID: <your device id>'."
	textNoImages       = "No images have been recorded yet."
	textFewerImages    = "Only %d image(s) recorded so far, here they are."
	textRecordsFailed  = "Sorry, I could not load your images right now. Please try again later."
	textFallback       = "Sorry, I did not understand '%s'. Try sending the command 'Help' to explore my full functionality."
	textMovement       = "Hi: It seems that we have detected movement in your home. Here is an image of it."
	titleMovement      = "Movement"
	titleImages        = "Images"
	subtitleRequested  = "User Requested"
	subtitleTakenOnFmt = "Taken on %s"
)

// Watchers starts notification watchers. *watcher.Manager implements it.
type Watchers interface {
	Start(ctx context.Context, userID string, fn watcher.NotificationFunc) (*watcher.Handle, error)
}

// Records reads user records.
type Records interface {
	Get(ctx context.Context, userID string) (*records.UserRecord, error)
}

// Resolver turns stored image references into viewable URLs.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type Bot struct {
	recognizer Recognizer
	watchers   Watchers
	records    Records
	resolver   Resolver
	logger     logging.Logger
	metrics    *metrics.Metrics
}

// New builds a Bot. resolver may be nil, in which case references are shown
// as stored.
func New(w Watchers, r Records, resolver Resolver, l logging.Logger, m *metrics.Metrics) *Bot {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Bot{
		watchers: w,
		records:  r,
		resolver: resolver,
		logger:   l.With("module", "bot"),
		metrics:  m,
	}
}

// NewSession starts a conversation. The session lives until Close or until
// ctx is done.
func (b *Bot) NewSession(ctx context.Context, conversationID string, out Sender) *Session {
	sctx, cancel := context.WithCancel(ctx)
	return &Session{
		bot:    b,
		id:     conversationID,
		out:    out,
		ctx:    sctx,
		cancel: cancel,
		logger: b.logger.With("conversation", conversationID),
	}
}
