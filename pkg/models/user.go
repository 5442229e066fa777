package models

// User is an account that may receive device status notifications.
// Credentials are managed elsewhere and never loaded here.
type User struct {
	ID                   string `json:"id"`
	Username             string `json:"username" example:"admin"`
	Email                string `json:"email" example:"admin@example.com"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// WantsNotifications reports whether the user should receive status e-mails.
func (u User) WantsNotifications() bool {
	return u.NotificationsEnabled && u.Email != ""
}
