package models

// AuthStatus is the tri-state sign-in status of the admin session
type AuthStatus string

const (
	AuthStatusUnknown         AuthStatus = "unknown" // the provider has not reported yet
	AuthStatusAuthenticated   AuthStatus = "authenticated"
	AuthStatusUnauthenticated AuthStatus = "unauthenticated"
)

// AuthState is the snapshot emitted by the auth feed
type AuthState struct {
	Status   AuthStatus `json:"status"`
	Username *string    `json:"username"`
}

// UnknownAuthState is the state held before the auth feed reports
func UnknownAuthState() AuthState {
	return AuthState{Status: AuthStatusUnknown}
}

// SignedIn returns an authenticated state for the given username
func SignedIn(username string) AuthState {
	return AuthState{Status: AuthStatusAuthenticated, Username: &username}
}

// SignedOut returns an unauthenticated state
func SignedOut() AuthState {
	return AuthState{Status: AuthStatusUnauthenticated}
}

// Known reports whether the provider has resolved the sign-in state
func (a AuthState) Known() bool {
	return a.Status == AuthStatusAuthenticated || a.Status == AuthStatusUnauthenticated
}

// IsAuthenticated reports whether an admin is signed in
func (a AuthState) IsAuthenticated() bool {
	return a.Status == AuthStatusAuthenticated
}
