package camera

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/atomic"
)

// MailboxStats are the counters of a Mailbox.
type MailboxStats struct {
	Published uint64
	Consumed  uint64
	// Dropped counts frames overwritten before anyone read them.
	Dropped uint64
}

// A Mailbox holds the latest published frame. Publishing overwrites the slot and never waits for a
// reader; reading never blocks and does not empty the slot, so a slow poller sees the newest frame
// and a fast one sees duplicates.
type Mailbox struct {
	width, height int

	mu     sync.Mutex
	frame  image.Image
	unread bool

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewMailbox returns an empty mailbox. If width and height are positive, published frames of another
// size are resized to width x height.
func NewMailbox(width, height int) *Mailbox {
	return &Mailbox{width: width, height: height}
}

// Publish stores img as the latest frame.
func (m *Mailbox) Publish(img image.Image) {
	if img == nil {
		return
	}
	if m.width > 0 && m.height > 0 {
		if size := img.Bounds().Size(); size.X != m.width || size.Y != m.height {
			img = imaging.Resize(img, m.width, m.height, imaging.Linear)
		}
	}
	m.mu.Lock()
	if m.unread {
		m.dropped.Inc()
	}
	m.frame = img
	m.unread = true
	m.mu.Unlock()
	m.published.Inc()
}

// Frame returns the latest frame, or false if none was published yet.
func (m *Mailbox) Frame() (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil {
		return nil, false
	}
	if m.unread {
		m.unread = false
		m.consumed.Inc()
	}
	return m.frame, true
}

// Stats returns the mailbox counters.
func (m *Mailbox) Stats() MailboxStats {
	return MailboxStats{
		Published: m.published.Load(),
		Consumed:  m.consumed.Load(),
		Dropped:   m.dropped.Load(),
	}
}
