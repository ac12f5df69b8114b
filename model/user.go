package model

import "time"

type User struct {
	UserID    string    `firestore:"userid,omitempty"`
	Name      string    `firestore:"name,omitempty"`
	Email     string    `firestore:"email,omitempty"`
	Password  string    `firestore:"password,omitempty"` // bcrypt hash
	CreatedAt time.Time `firestore:"createdat,omitempty"`
}

// Session is the current-user signal handed to watchers; nil means
// signed out.
type Session struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
