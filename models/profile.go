package models

// Gender is the optional self-description stored on the profile.
type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderNonBinary      Gender = "nonBinary"
	GenderPreferNotToSay Gender = "preferNotToSay"
)

// Valid reports whether g is empty or a known value.
func (g Gender) Valid() bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderNonBinary, GenderPreferNotToSay:
		return true
	}
	return false
}

// UserProfile is the singleton profile created at onboarding.
type UserProfile struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender Gender `json:"gender,omitempty"`
}
