package user

// MaxPasswordBytes is the longest password bcrypt accepts, in bytes.
const MaxPasswordBytes = 72

// User is a registered account. PasswordHash is never serialised.
type User struct {
	Username     string `json:"username" db:"username"`
	Name         string `json:"name" db:"name"`
	Lastname     string `json:"lastname" db:"lastname"`
	PasswordHash string `json:"-" db:"password_hash"`
	Description  string `json:"description" db:"description"`
	Picture      string `json:"picture" db:"picture"`
}

// Registration carries the fields accepted at signup.
type Registration struct {
	Username    string `json:"username" validate:"required,max=20"`
	Name        string `json:"name" validate:"max=100"`
	Lastname    string `json:"lastname" validate:"max=100"`
	Password    string `json:"password" validate:"required,maxbytes=72"`
	Description string `json:"description"`
	Picture     string `json:"picture"`
}

// Changes lists the profile fields an update may touch. Nil fields are left
// as they are; the username is the update key and cannot be changed.
type Changes struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Lastname    *string `json:"lastname,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty"`
	Picture     *string `json:"picture,omitempty"`
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.Name == nil && c.Lastname == nil && c.Description == nil && c.Picture == nil
}

// Apply copies the set fields onto u.
func (c Changes) Apply(u *User) {
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.Lastname != nil {
		u.Lastname = *c.Lastname
	}
	if c.Description != nil {
		u.Description = *c.Description
	}
	if c.Picture != nil {
		u.Picture = *c.Picture
	}
}

// LoginOutcome is the result of a password check.
type LoginOutcome int

const (
	LoginSucceeded LoginOutcome = iota
	LoginUserNotFound
	LoginWrongPassword
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSucceeded:
		return "success"
	case LoginUserNotFound:
		return "user not found"
	case LoginWrongPassword:
		return "wrong password"
	default:
		return "unknown"
	}
}
