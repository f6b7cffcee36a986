package domain

// User is the identity record kept for the current profile. The cart only
// cares whether one is present.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
