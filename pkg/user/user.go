package user

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Email       string
	Phone       string
	Settings    Settings
}

type Settings struct {
	Timezone string
}

// Location returns the user's configured timezone, falling back to UTC.
func (u User) Location() *time.Location {
	if u.Settings.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Settings.Timezone)
	if err != nil {
		log.Warnf("invalid timezone %q for user %d: %v", u.Settings.Timezone, u.Id, err)
		return time.UTC
	}
	return loc
}
