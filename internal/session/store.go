package session

// Session is one persisted conversation scoped to a single video.
type Session struct {
	ID      int64
	Title   string
	VideoID string
}

// Store holds the known sessions and which one is active. It is not safe
// for concurrent use; the controller's lock covers it.
type Store struct {
	sessions []Session
	activeID int64
}

// Prepend inserts a freshly created session at the front of the list.
func (s *Store) Prepend(sess Session) {
	s.sessions = append([]Session{sess}, s.sessions...)
}

// Replace swaps the whole list, used after fetching the stored sessions.
func (s *Store) Replace(list []Session) {
	s.sessions = append([]Session(nil), list...)
}

// SetActive marks the given session id as the current one.
func (s *Store) SetActive(id int64) {
	s.activeID = id
}

// ActiveID reports the current session id, zero when none is active.
func (s *Store) ActiveID() int64 {
	return s.activeID
}

// Active returns the active session record when one is selected.
func (s *Store) Active() (Session, bool) {
	for _, sess := range s.sessions {
		if sess.ID == s.activeID {
			return sess, true
		}
	}
	return Session{}, false
}

// All returns a copy of the session list, newest first.
func (s *Store) All() []Session {
	return append([]Session(nil), s.sessions...)
}

// Clear drops every session, used at logout.
func (s *Store) Clear() {
	s.sessions = nil
	s.activeID = 0
}
