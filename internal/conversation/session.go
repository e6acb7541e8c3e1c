package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/remindbot/internal/models"
)

// State is the position of a session in its flow.
type State string

const (
	StateAddText        State = "add_text"
	StateAddTime        State = "add_time"
	StateAddDays        State = "add_days"
	StateAddCustomDays  State = "add_custom_days"
	StateEditChoose     State = "edit_choose"
	StateEditText       State = "edit_text"
	StateEditTime       State = "edit_time"
	StateEditDays       State = "edit_days"
	StateEditCustomDays State = "edit_custom_days"
	StatePhotoImage     State = "photo_image"
	StatePhotoPeriod    State = "photo_period"
)

// Session is the transient per-chat state of an open flow.
type Session struct {
	ID     uuid.UUID
	ChatID int64
	State  State

	Text   string
	Hour   int
	Minute int
	// Days accumulates a custom weekday selection.
	Days models.WeekdaySet

	ReminderID int64
	ImageRef   string

	UpdatedAt time.Time
}

// Sessions stores at most one session per chat. Sessions idle for longer than
// the TTL are treated as absent.
type Sessions struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	byChat map[int64]*Session
}

// NewSessions creates an empty session store.
func NewSessions(ttl time.Duration, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{ttl: ttl, now: now, byChat: make(map[int64]*Session)}
}

// Open starts a new session in state, discarding any session already open for the chat.
func (s *Sessions) Open(chatID int64, state State) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{ID: uuid.New(), ChatID: chatID, State: state, UpdatedAt: s.now()}
	s.byChat[chatID] = sess
	return *sess
}

// Get returns the open session of a chat.
func (s *Sessions) Get(chatID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChat[chatID]
	if !ok {
		return Session{}, false
	}
	if s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl {
		delete(s.byChat, chatID)
		return Session{}, false
	}
	return *sess, true
}

// Save stores sess if it is still the open session of its chat.
func (s *Sessions) Save(sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byChat[sess.ChatID]
	if !ok || cur.ID != sess.ID {
		return false
	}
	sess.UpdatedAt = s.now()
	*cur = sess
	return true
}

// Close discards the open session of a chat. It reports whether one was open.
func (s *Sessions) Close(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byChat[chatID]
	delete(s.byChat, chatID)
	return ok
}
