package domain

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Role is the authorization role of a user.
type Role string

// Roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// MaxNameLength bounds given and family names.
const MaxNameLength = 125

var (
	passwordPolicy = regexp.MustCompile(`^[0-9a-zA-Z]{5,16}$`)
	validate       = validator.New()
)

// User is a registered account, keyed by email.
type User struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	LastName       string `json:"last_name"`
	HashedPassword string `json:"-"`
	Role           Role   `json:"role"`
}

// NewUser creates a User and validates it.
func NewUser(email, name, lastName, hashedPassword string, role Role) (*User, error) {
	user := &User{
		Email:          strings.TrimSpace(email),
		Name:           strings.TrimSpace(name),
		LastName:       strings.TrimSpace(lastName),
		HashedPassword: hashedPassword,
		Role:           role,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	if user.HashedPassword == "" {
		return nil, Errorf(ErrInvalidInput, "hashed password cannot be empty")
	}

	return user, nil
}

// Validate checks the identity and profile fields of u.
func (u *User) Validate() error {
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if err := validateName("name", u.Name); err != nil {
		return err
	}
	if err := validateName("last name", u.LastName); err != nil {
		return err
	}
	if !u.Role.Valid() {
		return Errorf(ErrInvalidInput, "unknown role %q", u.Role)
	}
	return nil
}

// FullName is the display name cached on the user's cards.
func (u *User) FullName() string {
	return u.Name + " " + u.LastName
}

// ValidateEmail checks that email is present and well formed.
func ValidateEmail(email string) error {
	if email == "" {
		return Errorf(ErrInvalidInput, "email cannot be empty")
	}
	if err := validate.Var(email, "email"); err != nil {
		return NewError(ErrInvalidInput, "invalid email format", err)
	}
	return nil
}

// ValidatePassword enforces the password policy: 5 to 16 characters,
// ASCII letters and digits only.
func ValidatePassword(password string) error {
	if !passwordPolicy.MatchString(password) {
		return Errorf(ErrInvalidInput,
			"password must be 5 to 16 characters of digits 0-9 and letters a-z, A-Z")
	}
	return nil
}

func validateName(field, value string) error {
	if value == "" {
		return Errorf(ErrInvalidInput, "%s cannot be empty", field)
	}
	if len([]rune(value)) > MaxNameLength {
		return Errorf(ErrInvalidInput, "%s must be at most %d characters", field, MaxNameLength)
	}
	return nil
}

// Principal is an already-authenticated caller identity. It is passed
// explicitly into every owner-scoped operation.
type Principal struct {
	Email string
	Role  Role
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
