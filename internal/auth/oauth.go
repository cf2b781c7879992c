package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/linkedin"
)

// OAuthClient exchanges an authorization code with a provider and fetches
// the user profile. GitHub, LinkedIn and Facebook all follow the
// code-exchange flow; Google and Apple ship ID tokens instead (idtokens.go).
type OAuthClient struct {
	Provider     string
	ClientID     string
	ClientSecret string
	HTTPTimeout  time.Duration
}

func (c *OAuthClient) config(redirectURL string) (*oauth2.Config, error) {
	var endpoint oauth2.Endpoint
	var scopes []string
	switch c.Provider {
	case "github":
		endpoint = github.Endpoint
		scopes = []string{"read:user", "user:email"}
	case "linkedin":
		endpoint = linkedin.Endpoint
		scopes = []string{"openid", "profile", "email"}
	case "facebook":
		endpoint = facebook.Endpoint
		scopes = []string{"email", "public_profile"}
	default:
		return nil, fmt.Errorf("unsupported oauth provider: %s", c.Provider)
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}, nil
}

// Exchange trades an authorization code for the provider's profile claims.
func (c *OAuthClient) Exchange(ctx context.Context, code, redirectURL string) (*ProviderClaims, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("missing authorization code")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, fmt.Errorf("%s oauth not configured", c.Provider)
	}

	conf, err := c.config(redirectURL)
	if err != nil {
		return nil, err
	}

	timeout := c.HTTPTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange: %w", c.Provider, err)
	}

	return c.fetchProfile(ctx, conf.Client(ctx, tok))
}

func (c *OAuthClient) fetchProfile(ctx context.Context, client *http.Client) (*ProviderClaims, error) {
	var url string
	switch c.Provider {
	case "github":
		url = "https://api.github.com/user"
	case "linkedin":
		url = "https://api.linkedin.com/v2/userinfo"
	case "facebook":
		url = "https://graph.facebook.com/me?fields=id,name,email,picture"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s profile fetch: %w", c.Provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s profile fetch: status %d", c.Provider, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s profile read: %w", c.Provider, err)
	}

	claims, err := c.parseProfile(body)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s profile: missing subject", c.Provider)
	}
	claims.Email = strings.TrimSpace(strings.ToLower(claims.Email))
	return claims, nil
}

func (c *OAuthClient) parseProfile(body []byte) (*ProviderClaims, error) {
	switch c.Provider {
	case "github":
		var p struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("github profile decode: %w", err)
		}
		name := p.Name
		if name == "" {
			name = p.Login
		}
		return &ProviderClaims{
			Provider: "github",
			Subject:  fmt.Sprintf("%d", p.ID),
			Email:    p.Email,
			Name:     name,
			Picture:  p.AvatarURL,
		}, nil
	case "linkedin":
		var p struct {
			Sub     string `json:"sub"`
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("linkedin profile decode: %w", err)
		}
		return &ProviderClaims{
			Provider: "linkedin",
			Subject:  p.Sub,
			Email:    p.Email,
			Name:     p.Name,
			Picture:  p.Picture,
		}, nil
	case "facebook":
		var p struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture struct {
				Data struct {
					URL string `json:"url"`
				} `json:"data"`
			} `json:"picture"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("facebook profile decode: %w", err)
		}
		return &ProviderClaims{
			Provider: "facebook",
			Subject:  p.ID,
			Email:    p.Email,
			Name:     p.Name,
			Picture:  p.Picture.Data.URL,
		}, nil
	}
	return nil, fmt.Errorf("unsupported oauth provider: %s", c.Provider)
}
