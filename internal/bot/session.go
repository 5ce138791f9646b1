package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/dmitrijs2005/intrusionbot/internal/history"
	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/dmitrijs2005/intrusionbot/internal/watcher"
)

// Session is the state of one conversation.
type Session struct {
	bot    *Bot
	id     string
	out    Sender
	ctx    context.Context
	cancel context.CancelFunc
	logger logging.Logger

	mu              sync.Mutex
	userID          string
	awaitingConfirm bool
	handle          *watcher.Handle
}

func (s *Session) ID() string { return s.id }

// UserID returns the signed-up device id, or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Handle processes one inbound message.
func (s *Session) Handle(ctx context.Context, text string) error {
	intent := s.bot.recognizer.Recognize(text)

	s.mu.Lock()
	confirming := s.awaitingConfirm
	s.mu.Unlock()

	if confirming {
		if yes, ok := ParseConfirm(text); ok {
			s.bot.metrics.MessagesHandled.WithLabelValues(string(IntentCancel)).Inc()
			return s.confirmCancel(ctx, yes)
		}
		if intent == IntentNone {
			return s.reply(ctx, textCancelPrompt)
		}
		s.mu.Lock()
		s.awaitingConfirm = false
		s.mu.Unlock()
	}

	s.bot.metrics.MessagesHandled.WithLabelValues(string(intent)).Inc()
	s.logger.Debug(ctx, "message recognized", "intent", intent)

	switch intent {
	case IntentSignUp:
		return s.signUp(ctx, SignUpID(text))

	case IntentHelp:
		return s.reply(ctx, textHelp)

	case IntentCancel:
		s.mu.Lock()
		s.awaitingConfirm = true
		s.mu.Unlock()
		return s.reply(ctx, textCancelPrompt)

	case IntentQueryImages:
		return s.queryImages(ctx, text)

	default:
		return s.reply(ctx, fmt.Sprintf(textFallback, text))
	}
}

// Close cancels the session watcher.
func (s *Session) Close() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
	s.cancel()
}

func (s *Session) signUp(ctx context.Context, userID string) error {
	h, err := s.bot.watchers.Start(s.ctx, userID, s.notify)
	if err != nil {
		s.logger.Error(ctx, "sign up failed", "user_id", userID, "error", err)
		if rerr := s.reply(ctx, textSignUpFailed); rerr != nil {
			return rerr
		}
		return err
	}

	s.mu.Lock()
	prior := s.handle
	s.handle = h
	s.userID = userID
	s.mu.Unlock()

	if prior != nil && prior != h {
		prior.Cancel()
	}

	s.logger.Info(ctx, "signed up", "user_id", userID)
	return s.reply(ctx, textSignedUp)
}

func (s *Session) confirmCancel(ctx context.Context, yes bool) error {
	s.mu.Lock()
	s.awaitingConfirm = false
	h := s.handle
	if yes {
		s.handle = nil
	}
	s.mu.Unlock()

	if !yes {
		return s.reply(ctx, textNotTerminated)
	}

	if h != nil {
		h.Cancel()
	}
	s.logger.Info(ctx, "service terminated", "user_id", s.UserID())
	return s.reply(ctx, textTerminated)
}

func (s *Session) queryImages(ctx context.Context, text string) error {
	userID := s.UserID()
	if userID == "" {
		return errors.Join(common.ErrNotSignedUp, s.reply(ctx, textNotSignedUp))
	}

	count, defaulted := history.ParseCount(text)
	if defaulted {
		if err := s.reply(ctx, textDefaultCount); err != nil {
			return err
		}
	}

	rec, err := s.bot.records.Get(ctx, userID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return s.reply(ctx, textNoImages)
	case err != nil:
		s.logger.Error(ctx, "record read failed", "user_id", userID, "error", err)
		return errors.Join(err, s.reply(ctx, textRecordsFailed))
	}

	refs, err := history.SelectRecent(rec.ImageHistory, count)
	if errors.Is(err, common.ErrInsufficientHistory) {
		refs = history.All(rec.ImageHistory)
		if len(refs) == 0 {
			return s.reply(ctx, textNoImages)
		}
		if err := s.reply(ctx, fmt.Sprintf(textFewerImages, len(refs))); err != nil {
			return err
		}
	}

	cards := make([]HeroCard, 0, len(refs))
	for _, ref := range refs {
		cards = append(cards, HeroCard{
			Title:    titleImages,
			Subtitle: subtitleRequested,
			Images:   []CardImage{{URL: s.resolve(ctx, ref)}},
		})
	}
	return s.send(ctx, CardActivity(LayoutCarousel, cards...))
}

// notify renders a movement alert. It runs on the watcher goroutine.
func (s *Session) notify(ctx context.Context, n watcher.Notification) {
	img := CardImage{URL: n.ImageURL}
	if n.Image != nil {
		img.Thumbnail = n.Image.ThumbnailDataURI()
	}

	card := HeroCard{
		Title:    titleMovement,
		Subtitle: fmt.Sprintf(subtitleTakenOnFmt, n.Timestamp),
		Text:     textMovement,
		Images:   []CardImage{img},
	}

	if err := s.send(ctx, CardActivity("", card)); err != nil {
		s.logger.Warn(ctx, "movement alert not sent", "user_id", n.UserID, "error", err)
	}
}

func (s *Session) resolve(ctx context.Context, ref string) string {
	if s.bot.resolver == nil {
		return ref
	}
	url, err := s.bot.resolver.Resolve(ctx, ref)
	if err != nil {
		s.logger.Warn(ctx, "image resolve failed", "ref", ref, "error", err)
		return ref
	}
	return url
}

func (s *Session) reply(ctx context.Context, text string) error {
	return s.send(ctx, TextActivity(text))
}

func (s *Session) send(ctx context.Context, a Activity) error {
	if err := s.out.Send(ctx, a); err != nil {
		return fmt.Errorf("send activity: %w", err)
	}
	return nil
}
