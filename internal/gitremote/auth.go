package gitremote

import (
	"fmt"
	gohttp "net/http"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/mirrorsync/mirrorsync/internal/config"
)

// authFromConfig picks the HTTP authentication for the remote: basic auth
// when a username is set (GitLab expects "oauth2" with a token, GitHub
// "x-access-token"), otherwise a bearer token. Extra headers are sent either
// way. No credentials yields anonymous access.
func authFromConfig(cfg config.Git) transport.AuthMethod {
	switch {
	case cfg.Username != "":
		if len(cfg.Headers) == 0 {
			return &http.BasicAuth{Username: cfg.Username, Password: cfg.Token}
		}
		return &basicAuth{Username: cfg.Username, Password: cfg.Token, Headers: cfg.Headers}
	case cfg.Token != "":
		return &tokenAuth{token: cfg.Token, headers: cfg.Headers}
	case len(cfg.Headers) > 0:
		return &tokenAuth{headers: cfg.Headers}
	default:
		return nil
	}
}

// basicAuth provides HTTP basic authentication but in addition can set
// extra headers required for authentication.
type basicAuth struct {
	Username string
	Password string
	Headers  []string
}

func (a *basicAuth) String() string {
	masked := "*******"
	if a.Password == "" {
		masked = "<empty>"
	}
	return fmt.Sprintf("%s - %s:%s [%s]", a.Name(), a.Username, masked, strings.Join(headerNames(a.Headers), ", "))
}

func (*basicAuth) Name() string {
	return "http-basic-auth-extra"
}

func (a *basicAuth) SetAuth(r *gohttp.Request) {
	r.SetBasicAuth(a.Username, a.Password)
	setHeaders(r, a.Headers)
}

// tokenAuth provides HTTP bearer token authentication plus optional extra
// headers.
type tokenAuth struct {
	token   string
	headers []string
}

func (a *tokenAuth) String() string {
	return a.Name() + " - token-based"
}

func (*tokenAuth) Name() string {
	return "http-bearer-token"
}

func (a *tokenAuth) SetAuth(r *gohttp.Request) {
	if a.token != "" {
		r.Header.Set("Authorization", "Bearer "+a.token)
	}
	setHeaders(r, a.headers)
}

func setHeaders(r *gohttp.Request, headers []string) {
	for _, header := range headers {
		name, value, found := strings.Cut(header, ":")
		if found {
			r.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}
}

// headerNames keeps header values, which are often credentials, out of String.
func headerNames(headers []string) []string {
	names := make([]string, 0, len(headers))
	for _, header := range headers {
		name, _, _ := strings.Cut(header, ":")
		names = append(names, strings.TrimSpace(name))
	}
	return names
}
