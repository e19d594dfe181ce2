package domain

// User identifies a board or card author. Email is the identity key.
type User struct {
	Email           string `json:"email"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}
