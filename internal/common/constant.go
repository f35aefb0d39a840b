package common

// Header names shared between the client and the reference server.
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)
