package model

// Profile is the body of GET /profile.  The service identifies the
// caller by the e-mail address (or username) bound to the session
// token.
type Profile struct {
	User string `json:"user"`
}

// Credentials is the body of POST /login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup is the body of POST /signup.
//
// Fields:
//
//	Username – display name; defaults to "User" when left empty.
//	Email    – login identifier.
//	Password – plain password, hashed by the service.
type Signup struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DefaultUsername is sent on signup when the caller does not provide one.
const DefaultUsername = "User"

// LoginResult is the body of a successful POST /login.
type LoginResult struct {
	Token string `json:"token"`
}
