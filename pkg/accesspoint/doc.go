// Package accesspoint declares HTTP endpoints once and calls them many times.
//
// An endpoint is described by a Spec: a set of resolver functions that
// receive a caller-defined context value C (user, language, flags...) and
// compute the base URL, method, path pattern, headers, body and permission
// of each call. Result and failure hooks turn responses into a typed R or an
// *apierr.Error.
//
//	var getUser = accesspoint.MustNew(accesspoint.Spec[Session, struct{}, User]{
//		Method:  accesspoint.Fixed[Session](accesspoint.MethodGet),
//		Path:    accesspoint.Fixed[Session]("/users/{id}"),
//		Allowed: func(s Session) bool { return s.LoggedIn },
//	}, accesspoint.WithAPIRoot(urls.APIRoot()))
//
//	u, err := getUser.Call(ctx, sess, accesspoint.Request[struct{}]{
//		PathArgs: accesspoint.PathArgs{"id": 42},
//	})
//
// Timed calls on one AccessPoint supersede each other: starting a call
// cancels the previous one still in flight.
package accesspoint
