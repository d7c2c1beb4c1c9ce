package users

import "time"

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email,omitempty"`
	FullName   string    `json:"fullName,omitempty"`
	GivenName  string    `json:"givenName,omitempty"`
	FamilyName string    `json:"familyName,omitempty"`
	PictureURL string    `json:"pictureUrl,omitempty"`
	IsGuest    bool      `json:"isGuest"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Owner is the public projection of a user attached to listed documents.
type Owner struct {
	ID       string `json:"id"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (u User) Owner() Owner {
	return Owner{ID: u.ID, FullName: u.FullName, Email: u.Email}
}
