package api

// Common request/response structures for the admin API.

// LoginRequest defines the payload for the admin login endpoint.
type LoginRequest struct {
	// Subject names the operator logging in; it lands in the token's sub
	// claim and in authorization grant records.
	Subject string `json:"subject" validate:"required,min=1,max=64"`

	// Secret is the shared admin secret, verified against the configured
	// bcrypt hash.
	Secret string `json:"secret" validate:"required,min=1"`
}

// LoginResponse defines the successful response for the admin login endpoint.
type LoginResponse struct {
	// AccessToken is the JWT used for subsequent admin API calls.
	AccessToken string `json:"access_token"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires.
	ExpiresAt string `json:"expires_at"`
}

// AuthorizationResponse reports the allow-list state for one learner after
// a grant or revoke.
type AuthorizationResponse struct {
	LearnerID  string `json:"learner_id"`
	Authorized bool   `json:"authorized"`
}

// BroadcastResponse acknowledges an accepted daily invite broadcast request.
type BroadcastResponse struct {
	// BroadcastID identifies the fan-out for correlation with delivery rows.
	BroadcastID string `json:"broadcast_id"`

	// Status is always "accepted": the broadcast runs asynchronously on the
	// worker pool.
	Status string `json:"status"`
}
