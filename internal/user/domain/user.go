package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Role is a user's permission level inside their company.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleRecruiter     Role = "recruiter"
	RoleInterviewer   Role = "interviewer"
	RoleHiringManager Role = "hiring_manager"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleRecruiter, RoleInterviewer, RoleHiringManager}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Theme is the UI theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// Preferences holds per-user notification and display preferences.
type Preferences struct {
	NotifyEmail bool
	NotifyInApp bool
	Theme       Theme
}

// DefaultPreferences returns the preferences a new user starts with.
func DefaultPreferences() Preferences {
	return Preferences{NotifyEmail: true, NotifyInApp: true, Theme: ThemeSystem}
}

// User is an identity belonging to exactly one company. It never carries the password hash;
// see Credentials for the verification path.
type User struct {
	ID          string
	CompanyID   string
	Email       string
	FirstName   string
	LastName    string
	Role        Role
	Position    string
	Department  string
	Avatar      string
	PhoneNumber string
	Location    string
	Bio         string
	Skills      []string
	Preferences Preferences
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName returns "First Last".
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Credentials pairs a user with their stored password hash. Only the login and
// password-change paths load it.
type Credentials struct {
	User         *User
	PasswordHash string
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// MaxPasswordLength is the bcrypt input limit.
const MaxPasswordLength = 72

var (
	ErrEmailRequired     = errors.New("email is required")
	ErrEmailInvalid      = errors.New("email is invalid")
	ErrFirstNameRequired = errors.New("first name is required")
	ErrLastNameRequired  = errors.New("last name is required")
	ErrRoleInvalid       = errors.New("role is invalid")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong   = errors.New("password must be at most 72 bytes")
)

// NormalizeEmail trims and lower-cases an email address. Lookups and storage both go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is present and parses as a bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword enforces the length bounds on a new password.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// Validate validates the user for persistence. Returns the first validation failure.
func (u *User) Validate() error {
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if strings.TrimSpace(u.FirstName) == "" {
		return ErrFirstNameRequired
	}
	if strings.TrimSpace(u.LastName) == "" {
		return ErrLastNameRequired
	}
	if !u.Role.Valid() {
		return ErrRoleInvalid
	}
	if u.Preferences.Theme == "" {
		u.Preferences.Theme = ThemeSystem
	}
	return nil
}
