package domain

import (
	"strings"
	"time"
)

// Airtable field names of the Users table.
const (
	FieldUserName         = "Name"
	FieldUserEmail        = "Email"
	FieldUserPassword     = "Password"
	FieldUserType         = "User_Type"
	FieldUserIntent       = "Intent"
	FieldUserBio          = "Bio"
	FieldUserProfileImage = "Profile_Image"
)

type UserType string

const (
	UserTypeBuyer  UserType = "Buyer"
	UserTypeSeller UserType = "Seller"
	UserTypeBoth   UserType = "Both"
)

// ParseUserType accepts Buyer, Seller or Both in any case. An empty value
// and the legacy "student" value map to Buyer.
func ParseUserType(s string) (UserType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "buyer", "student":
		return UserTypeBuyer, nil
	case "seller":
		return UserTypeSeller, nil
	case "both":
		return UserTypeBoth, nil
	}
	return "", ErrValidation("user type must be one of Buyer, Seller or Both")
}

// CanSell reports whether the user may post services.
func (t UserType) CanSell() bool {
	return t == UserTypeSeller || t == UserTypeBoth
}

type User struct {
	ID           string    `json:"id" mapstructure:"-"`
	CreatedTime  time.Time `json:"created_time" mapstructure:"-"`
	Name         string    `json:"name" mapstructure:"Name"`
	Email        string    `json:"email" mapstructure:"Email"`
	Password     string    `json:"-" mapstructure:"Password"`
	UserType     UserType  `json:"user_type" mapstructure:"User_Type"`
	Intent       string    `json:"intent,omitempty" mapstructure:"Intent"`
	Bio          string    `json:"bio,omitempty" mapstructure:"Bio"`
	ProfileImage string    `json:"profile_image,omitempty" mapstructure:"Profile_Image"`
}
