package credentials

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OAuthCredentials is the per-provider credential file shape persisted under
// <config_home>/auth/<provider>.json.
type OAuthCredentials struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh,omitempty"`
	Expires   int64  `json:"expires,omitempty"` // unix seconds
	AccountID string `json:"account_id,omitempty"`
}

// expirySkew is subtracted from Expires before comparing against now, so a
// token is refreshed slightly ahead of its actual expiry.
const expirySkew = 60 * time.Second

// OAuthStore persists OAuth credentials for one provider under a config
// home directory, refreshing the access token on demand via exchange.
type OAuthStore struct {
	configHome string
	provider   string
	exchange   RefreshExchanger
}

// RefreshExchanger exchanges a refresh token for a new access token. The
// returned AccountID, if non-empty, is persisted alongside the tokens.
type RefreshExchanger func(refreshToken string) (access string, expiresAt int64, accountID string, err error)

// NewOAuthStore returns a store rooted at <configHome>/auth/<provider>.json.
func NewOAuthStore(configHome, provider string, exchange RefreshExchanger) *OAuthStore {
	return &OAuthStore{configHome: configHome, provider: provider, exchange: exchange}
}

func (s *OAuthStore) path() string {
	return filepath.Join(s.configHome, "auth", s.provider+".json")
}

// Clear removes the persisted credentials file, if one exists.
func (s *OAuthStore) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Load reads the persisted credentials, refreshing and re-persisting the
// access token first if it is expired or within the skew window.
func (s *OAuthStore) Load() (*OAuthCredentials, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return nil, fmt.Errorf("read %s credentials: %w", s.provider, err)
	}
	var creds OAuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s credentials: %w", s.provider, err)
	}

	if s.needsRefresh(&creds) {
		if creds.Refresh == "" {
			return nil, fmt.Errorf("%s credentials expired and no refresh token is stored", s.provider)
		}
		if s.exchange == nil {
			return nil, fmt.Errorf("%s credentials expired and no refresh exchanger is configured", s.provider)
		}
		access, expires, accountID, err := s.exchange(creds.Refresh)
		if err != nil {
			return nil, fmt.Errorf("refresh %s token: %w", s.provider, err)
		}
		creds.Access = access
		creds.Expires = expires
		if accountID != "" {
			creds.AccountID = accountID
		} else if creds.AccountID == "" {
			creds.AccountID = accountIDFromJWT(access)
		}
		if err := s.save(&creds); err != nil {
			return nil, fmt.Errorf("persist refreshed %s token: %w", s.provider, err)
		}
	} else if creds.AccountID == "" {
		creds.AccountID = accountIDFromJWT(creds.Access)
	}

	return &creds, nil
}

func (s *OAuthStore) needsRefresh(creds *OAuthCredentials) bool {
	if creds.Expires == 0 {
		return false
	}
	return time.Now().After(time.Unix(creds.Expires, 0).Add(-expirySkew))
}

// Save persists creds via write-then-rename so a crash mid-write never
// corrupts the file an in-flight reader might be loading.
func (s *OAuthStore) Save(creds *OAuthCredentials) error {
	return s.save(creds)
}

func (s *OAuthStore) save(creds *OAuthCredentials) error {
	path := s.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".auth-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// ImportFromSiblingCLI reads credentials already cached on disk (or in the
// OS keychain) by the provider's own CLI — Claude Code, Codex CLI, or
// gemini-cli — and persists them into this store's <configHome>/auth/
// file, so a later Load for the same provider no longer needs to re-read
// the sibling tool's credential file.
func ImportFromSiblingCLI(configHome, provider string) (*OAuthCredentials, error) {
	store := NewOAuthStore(configHome, provider, nil)

	switch provider {
	case "anthropic":
		tok, err := GetClaudeToken()
		if err != nil {
			return nil, err
		}
		creds := &OAuthCredentials{Access: tok}
		return creds, store.save(creds)

	case "codex", "openai", "chatgpt":
		c, err := GetCodexCredentials()
		if err != nil {
			return nil, err
		}
		creds := &OAuthCredentials{Access: c.AccessToken, AccountID: c.AccountID}
		return creds, store.save(creds)

	case "gemini":
		c, err := GetGeminiOAuthCredentials()
		if err != nil {
			return nil, err
		}
		creds := &OAuthCredentials{Access: c.AccessToken, Refresh: c.RefreshToken, Expires: c.ExpiryDate}
		return creds, store.save(creds)

	default:
		return nil, fmt.Errorf("no sibling-CLI credential source for provider %q", provider)
	}
}

// accountIDFromJWT decodes the unverified payload of a JWT access token and
// extracts a claim commonly used as an account identifier. Best-effort: a
// decode failure yields an empty string rather than an error, since account
// id is metadata, not a security boundary.
func accountIDFromJWT(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	for _, key := range []string{"account_id", "sub", "chatgpt_account_id"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
