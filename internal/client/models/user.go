package models

import "time"

// User is the authenticated account as returned by /auth/me/ and the login
// and register endpoints.
type User struct {
	ID                ID        `json:"id"`
	UUID              string    `json:"uuid"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	IsProfileComplete bool      `json:"is_profile_complete"`
	LastActive        time.Time `json:"last_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// BaseUser is the short user summary embedded in conversations and messages.
type BaseUser struct {
	ID       ID      `json:"id,omitempty"`
	UUID     string  `json:"uuid"`
	Username string  `json:"username"`
	PhotoURL *string `json:"photo_url"`
}

// Matches reports whether the summary refers to userID, checking both the
// uuid and the numeric id in their string forms.
func (u BaseUser) Matches(userID string) bool {
	if userID == "" {
		return false
	}
	return u.UUID == userID || string(u.ID) == userID
}

type Interest struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type ProfileInterest struct {
	Interest     Interest `json:"interest"`
	PassionLevel int      `json:"passion_level"`
}

type ProfilePhoto struct {
	ID         ID        `json:"id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Image      string    `json:"image"`
	IsPrimary  bool      `json:"is_primary"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// Profile is the dating profile of the current user. Only
// CompletionPercentage is relied upon by the session gate.
type Profile struct {
	User                 string            `json:"user"`
	Bio                  string            `json:"bio"`
	BirthDate            *string           `json:"birth_date"`
	Age                  *int              `json:"age"`
	Gender               string            `json:"gender"`
	City                 string            `json:"city"`
	Country              string            `json:"country"`
	RelationshipGoal     string            `json:"relationship_goal"`
	LookingForGender     string            `json:"looking_for_gender"`
	MinAgePreference     int               `json:"min_age_preference"`
	MaxAgePreference     int               `json:"max_age_preference"`
	MaxDistanceKm        int               `json:"max_distance_km"`
	CompletionPercentage int               `json:"profile_completion_percentage"`
	TotalMatches         int               `json:"total_matches"`
	TotalMessagesSent    int               `json:"total_messages_sent"`
	ProfileViews         int               `json:"profile_views"`
	Photos               []ProfilePhoto    `json:"photos"`
	Interests            []ProfileInterest `json:"interests"`
	IsVerified           bool              `json:"is_verified"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// ProfileUpdate carries the editable profile fields; nil fields are left
// untouched by the server.
type ProfileUpdate struct {
	Bio              *string `json:"bio,omitempty"`
	BirthDate        *string `json:"birth_date,omitempty"`
	Gender           *string `json:"gender,omitempty"`
	City             *string `json:"city,omitempty"`
	Country          *string `json:"country,omitempty"`
	RelationshipGoal *string `json:"relationship_goal,omitempty"`
	LookingForGender *string `json:"looking_for_gender,omitempty"`
	MinAgePreference *int    `json:"min_age_preference,omitempty"`
	MaxAgePreference *int    `json:"max_age_preference,omitempty"`
	MaxDistanceKm    *int    `json:"max_distance_km,omitempty"`
}

type ProfileUpdateResponse struct {
	Profile Profile `json:"profile"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// AuthResponse is returned by both login and register.
type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

type MeResponse struct {
	User User `json:"user"`
}

type DeviceTokenRequest struct {
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	DeviceName string `json:"deviceName"`
}
