package authclient

import "time"

// TokenResponse is the body of the login and refresh endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// SignupRequest carries the signup form fields.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User mirrors the API user record.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Avatar    string    `json:"avatar,omitempty"`
	Active    bool      `json:"active"`
}

// SignupResponse is the 201 body of the signup endpoint.
type SignupResponse struct {
	User   User   `json:"user"`
	Detail string `json:"detail,omitempty"`
}

// Profile is the body of GET /api/users/profile/.
type Profile struct {
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Avatar        string    `json:"avatar,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CommentsCount int64     `json:"comments_count"`
	ImagesCount   int64     `json:"images_count"`
}

// UserUpdate is the JSON body of PATCH /api/users/me/.
type UserUpdate struct {
	Username string `json:"username"`
}

// ContactOwner is the nested user of a contact.
type ContactOwner struct {
	Username string `json:"username"`
}

// Contact is one entry of GET /api/contacts.
type Contact struct {
	ID        int64        `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	User      ContactOwner `json:"user"`
}

// Post is one entry of GET /posts/user/{id}.
type Post struct {
	ID          int64  `json:"id"`
	CreatedAt   string `json:"created_at,omitempty"`
	URLOriginal string `json:"url_original"`
	Description string `json:"description,omitempty"`
	Tags        string `json:"tags,omitempty"`
}
