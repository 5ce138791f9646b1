package bot

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ActivityMessage = "message"
	LayoutCarousel  = "carousel"
)

// Activity is one outbound chat message.
type Activity struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Text             string     `json:"text,omitempty"`
	AttachmentLayout string     `json:"attachmentLayout,omitempty"`
	Attachments      []HeroCard `json:"attachments,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

type HeroCard struct {
	Title    string      `json:"title,omitempty"`
	Subtitle string      `json:"subtitle,omitempty"`
	Text     string      `json:"text,omitempty"`
	Images   []CardImage `json:"images,omitempty"`
}

// CardImage points at an image. Thumbnail, when set, is a data: URI preview.
type CardImage struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Sender delivers activities to one conversation.
type Sender interface {
	Send(ctx context.Context, a Activity) error
}

// now is a test seam.
var now = time.Now

func newActivity() Activity {
	return Activity{ID: uuid.NewString(), Type: ActivityMessage, Timestamp: now().UTC()}
}

func TextActivity(text string) Activity {
	a := newActivity()
	a.Text = text
	return a
}

func CardActivity(layout string, cards ...HeroCard) Activity {
	a := newActivity()
	a.AttachmentLayout = layout
	a.Attachments = cards
	return a
}
