package github

import (
	"net/http"
	"os"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"

	"github.com/mirrorsync/mirrorsync/internal/config"
)

// appTransport returns a transport that authenticates as a GitHub App
// installation. Installation tokens are short-lived; ghinstallation refreshes
// them as needed.
func appTransport(base http.RoundTripper, app *config.GitHubApp, apiURL string) (*ghinstallation.Transport, error) {
	privateKey, err := readPrivateKey(app.PrivateKey)
	if err != nil {
		return nil, err
	}

	tr, err := ghinstallation.New(base, app.AppID, app.InstallationID, privateKey)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		tr.BaseURL = strings.TrimSuffix(enterpriseAPIURL(apiURL), "/")
	}
	return tr, nil
}

// readPrivateKey accepts either an inline PEM or a path to a PEM file.
func readPrivateKey(value string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(value), "-----BEGIN") {
		return []byte(value), nil
	}
	return os.ReadFile(value)
}

// enterpriseAPIURL mirrors the normalisation go-github applies to enterprise
// base URLs, so that token requests and API calls agree.
func enterpriseAPIURL(apiURL string) string {
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	if !strings.HasSuffix(apiURL, "/api/v3/") && !strings.HasPrefix(apiURL, "https://api.") && !strings.Contains(apiURL, ".api.") {
		apiURL += "api/v3/"
	}
	return apiURL
}
