package models

// ContactMessage is a contact form submission relayed to the support inbox.
// Submissions are not persisted; delivery is the whole lifecycle.
type ContactMessage struct {
	Name     string
	Email    string
	Subject  string
	Category string
	Message  string
}
