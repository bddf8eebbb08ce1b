/*
Package authsdk is the Go client for the sessiond session service, and the
home of the wire types its HTTP API speaks.

# Client vs Session

  - Client: unauthenticated calls (login, validate, refresh, MFA, ids, health)
  - Session: calls made with a session's access token, refreshed automatically

Create a Client and log a user in once their credentials have been checked
elsewhere:

	client := authsdk.NewClient("http://sessiond:8080")

	session, err := client.Login(ctx, authsdk.CreateSessionRequest{
		UserID:     "u_123",
		Roles:      []string{"member"},
		RememberMe: true,
	})

Services receiving a bearer token validate it on every request:

	info, err := client.Validate(ctx, token)
	if errors.Is(err, authsdk.ErrTokenExpired) {
		// ask the caller to refresh
	}

A Session keeps its token pair fresh. Refresh tokens are single use by
default, so a Session must not be shared between processes:

	sessions, err := session.ListMySessions(ctx)
	err = session.Logout(ctx)

# Errors

Every non-2xx response becomes an *APIError. errors.Is matches on the error
code, so the predefined values (ErrTokenExpired, ErrSessionNotFound, ...) can
be used as sentinels.
*/
package authsdk
