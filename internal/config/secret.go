package config

import (
	"os"
)

// expand resolves ${VAR} references in credential fields read from a config
// file, so that secrets can stay in the environment:
//
//	github:
//	  token: ${MIRROR_TOKEN}
//
// Only credential fields are expanded. Unset variables expand to "".
func (c *Config) expand(lookup LookupFunc) {
	get := func(name string) string {
		v, _ := lookup(name)
		return v
	}

	if c.GitLab != nil {
		c.GitLab.Token = os.Expand(c.GitLab.Token, get)
	}
	if c.Git != nil {
		c.Git.Token = os.Expand(c.Git.Token, get)
		for i, h := range c.Git.Headers {
			c.Git.Headers[i] = os.Expand(h, get)
		}
	}
	c.GitHub.Token = os.Expand(c.GitHub.Token, get)
	if c.GitHub.App != nil {
		c.GitHub.App.PrivateKey = os.Expand(c.GitHub.App.PrivateKey, get)
	}
}

// Redacted returns a copy of c with credentials masked, for logging.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "*******"
	}

	if c.GitLab != nil {
		gl := *c.GitLab
		gl.Token = mask(gl.Token)
		c.GitLab = &gl
	}
	if c.Git != nil {
		g := *c.Git
		g.Token = mask(g.Token)
		g.Headers = nil
		c.Git = &g
	}
	c.GitHub.Token = mask(c.GitHub.Token)
	if c.GitHub.App != nil {
		app := *c.GitHub.App
		app.PrivateKey = mask(app.PrivateKey)
		c.GitHub.App = &app
	}
	return c
}
