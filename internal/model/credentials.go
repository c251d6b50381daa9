package model

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// ErrInvalidCredentials is returned by Credentials.Validate and ParseClubID.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials identify the terminal against the accounting service.
// They are entered once during setup and never change afterwards.
type Credentials struct {
	ClubID   uint32
	AppKey   string
	Username string
	Password string
}

// ParseClubID parses the numeric club identifier entered during setup.
func ParseClubID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: club id %q must be a positive number", ErrInvalidCredentials, s)
	}
	return uint32(id), nil
}

// Validate reports whether all fields are filled in.
func (c Credentials) Validate() error {
	switch {
	case c.ClubID == 0:
		return fmt.Errorf("%w: club id is required", ErrInvalidCredentials)
	case c.AppKey == "":
		return fmt.Errorf("%w: app key is required", ErrInvalidCredentials)
	case c.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidCredentials)
	case c.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidCredentials)
	}
	return nil
}

// String implements fmt.Stringer without the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClubID: %d, AppKey: %q, Username: %q, Password: [redacted]}",
		c.ClubID, c.AppKey, c.Username)
}

// LogValue implements slog.LogValuer without the password.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("club_id", c.ClubID),
		slog.String("app_key", c.AppKey),
		slog.String("username", c.Username),
	)
}
