package domain

// UserProfile is the signed-in identity supplied by the auth layer.
// The core only relies on ID staying stable for the account's lifetime.
type UserProfile struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
}
