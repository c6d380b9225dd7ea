package auth

import (
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf represents the configuration needed for authentication.
// A long-lived Token takes precedence; otherwise the client credentials
// flow is used against AuthURL.
type Conf struct {
	Token        string `json:"token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
}

// Validate checks that one of the two methods is configured.
func (c Conf) Validate() error {
	if c.Token != "" {
		return nil
	}
	if c.ClientID == "" || c.ClientSecret == "" || c.AuthURL == "" {
		return fmt.Errorf("either token or client_id, client_secret and auth_url are required")
	}
	return nil
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
	}
}
