package session

import (
	"log"
	"time"
)

// Level classifies a user-visible notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is one user-visible message. Seq increases by one per post.
type Notification struct {
	Seq     int
	Level   Level
	Title   string
	Message string
	At      time.Time
}

const maxNotifications = 50

func (s *Session) notify(level Level, title, message string) {
	s.noticeSeq++
	n := Notification{
		Seq:     s.noticeSeq,
		Level:   level,
		Title:   title,
		Message: message,
		At:      s.now(),
	}
	s.notices = append(s.notices, n)
	if over := len(s.notices) - maxNotifications; over > 0 {
		s.notices = append([]Notification(nil), s.notices[over:]...)
	}
	log.Printf("session: notice [%s] %s: %s", level, title, message)
}

// Notifications returns the retained notification history, oldest first.
func (s *Session) Notifications() []Notification {
	return append([]Notification(nil), s.notices...)
}

// LastNotification returns the most recent notification, if any.
func (s *Session) LastNotification() (Notification, bool) {
	if len(s.notices) == 0 {
		return Notification{}, false
	}
	return s.notices[len(s.notices)-1], true
}

// Post records a notification raised outside the session, such as a capture
// result. It is a no-op after Teardown.
func (s *Session) Post(level Level, title, message string) {
	if s.closed {
		return
	}
	s.notify(level, title, message)
}
