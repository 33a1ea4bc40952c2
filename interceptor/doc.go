// Package interceptor attaches the client's access token to outbound HTTP
// requests.
//
// [Transport] is an http.RoundTripper. Before each request it asks its
// [TokenSource] for a token valid for at least MinValidity, refreshing when
// needed, and sets "Authorization: <Prefix> <token>". Requests whose path
// starts with an excluded prefix, and requests made while no session is
// authenticated, go out unchanged.
package interceptor
