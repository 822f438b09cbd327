package storage

import "fmt"

// MarkWelcomed records that the user was greeted in chat. It returns true on
// the first sighting (the caller should send the greeting) and false on every
// repeat join.
func (s *Storage) MarkWelcomed(userID, chatID int64) (bool, error) {
	res, err := s.db.Exec(
		`INSERT INTO welcomed_users (user_id, chat_id) VALUES (?, ?)
		 ON CONFLICT(user_id, chat_id) DO NOTHING`,
		userID, chatID,
	)
	if err != nil {
		return false, fmt.Errorf("mark welcomed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark welcomed: %w", err)
	}
	return n > 0, nil
}
