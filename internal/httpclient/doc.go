// Package httpclient talks to the match service's HTTP API.
//
// [NewClient] builds a pooled *http.Client with a per-request timeout, and
// [Service] wraps the three endpoints a simulated client uses:
//
//	svc, err := httpclient.NewService(httpclient.NewClient(5*time.Second), "http://127.0.0.1:8080")
//	_ = svc.Register(ctx, creds)           // status ignored by callers
//	token, err := svc.Login(ctx, creds)    // data.token from the JSON envelope
//	err = svc.JoinQueue(ctx, auth.NewBearerTokenProvider(token), httpclient.JoinRequest{Mode: "normal", TimeoutSeconds: 5})
//
// Non-success statuses are returned as [*HTTPError] so callers can classify
// them by status code.
package httpclient
