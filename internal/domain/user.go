package domain

import "time"

type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Address   string  `json:"address" yaml:"address"`
	City      string  `json:"city" yaml:"city"`
	ZipCode   string  `json:"zip_code" yaml:"zip_code"`
}

type User struct {
	ID              string    `json:"id" yaml:"id"`
	Email           string    `json:"email" yaml:"email"`
	FirstName       string    `json:"first_name" yaml:"first_name"`
	LastName        string    `json:"last_name" yaml:"last_name"`
	ProfilePicture  *string   `json:"profile_picture,omitempty" yaml:"profile_picture,omitempty"`
	PhoneNumber     *string   `json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
	Location        *Location `json:"location,omitempty" yaml:"location,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	Verified        bool      `json:"verified" yaml:"verified"`
	Rating          float64   `json:"rating" yaml:"rating"`
	TotalDonations  int       `json:"total_donations" yaml:"total_donations"`
	TotalReceptions int       `json:"total_receptions" yaml:"total_receptions"`
}

// Clone returns a copy that shares no pointers with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.ProfilePicture = cloneString(u.ProfilePicture)
	c.PhoneNumber = cloneString(u.PhoneNumber)
	if u.Location != nil {
		loc := *u.Location
		c.Location = &loc
	}
	return &c
}

// ProfilePatch is a partial user update. Nil fields are left unchanged.
type ProfilePatch struct {
	FirstName      *string   `json:"first_name,omitempty"`
	LastName       *string   `json:"last_name,omitempty"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	PhoneNumber    *string   `json:"phone_number,omitempty"`
	Location       *Location `json:"location,omitempty"`
}

// Apply merges the patch into a copy of u.
func (p ProfilePatch) Apply(u *User) *User {
	out := u.Clone()
	if p.FirstName != nil {
		out.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		out.LastName = *p.LastName
	}
	if p.ProfilePicture != nil {
		out.ProfilePicture = cloneString(p.ProfilePicture)
	}
	if p.PhoneNumber != nil {
		out.PhoneNumber = cloneString(p.PhoneNumber)
	}
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
