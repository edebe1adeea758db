package entity

import (
	"strings"
	"time"
)

// BirthdayLayout is the wire format accepted for birthdays.
const BirthdayLayout = "2006-01-02"

type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Gmail     string    `json:"gmail" db:"gmail"`
	Password  string    `json:"-" db:"password"`
	Birthday  time.Time `json:"birthday" db:"birthday"`
	Rol       string    `json:"rol" db:"rol"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewUser(id, username, gmail, password string, birthday time.Time, rol string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        id,
		Username:  username,
		Gmail:     gmail,
		Password:  password,
		Birthday:  birthday,
		Rol:       rol,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch records a modification.
func (u *User) Touch() {
	u.UpdatedAt = time.Now().UTC()
}

// ParseBirthday parses a YYYY-MM-DD date that is not in the future.
func ParseBirthday(value string) (time.Time, bool) {
	birthday, err := time.Parse(BirthdayLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	if birthday.After(time.Now().UTC()) {
		return time.Time{}, false
	}
	return birthday, true
}
