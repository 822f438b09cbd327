package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// Gender is the channel tag recorded at a user's first submission. It is
// immutable: the first write wins for the lifetime of the account.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// GenderMismatchError reports a submission tagged differently from the gender
// already on record.
type GenderMismatchError struct {
	Recorded Gender
}

func (e *GenderMismatchError) Error() string {
	return fmt.Sprintf("storage: account gender already recorded as %s", e.Recorded)
}

// RegisterGender records g for the user on first call; afterwards it only
// verifies. The insert is race-safe: whichever submission lands first wins
// and every later mismatch is rejected.
func (s *Storage) RegisterGender(userID int64, username string, g Gender) error {
	_, err := s.db.Exec(
		`INSERT INTO users (user_id, username, gender) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, username, string(g),
	)
	if err != nil {
		return fmt.Errorf("register gender: %w", err)
	}

	recorded, err := s.GenderOf(userID)
	if err != nil {
		return err
	}
	if recorded != g {
		return &GenderMismatchError{Recorded: recorded}
	}
	return nil
}

// GenderOf returns the recorded gender, or "" when the user is unknown.
func (s *Storage) GenderOf(userID int64) (Gender, error) {
	var g string
	err := s.db.QueryRow("SELECT gender FROM users WHERE user_id = ?", userID).Scan(&g)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read gender: %w", err)
	}
	return Gender(g), nil
}
