package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/util"
)

// ErrAuth covers login and token failures against the identity cloud.
var ErrAuth = errors.New("authentication failed")

const loginSuccessStatus = 201

// Client talks to the identity/vault cloud.
type Client struct {
	httpClient *http.Client
	authURL    string
	apiURL     string
}

func NewClient(cfg config.CloudServer) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		authURL:    cfg.AuthURL,
		apiURL:     cfg.APIURL,
	}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Info       []struct {
		Message string `json:"message"`
	} `json:"info"`
}

func (e *envelope) message() string {
	if len(e.Info) > 0 && e.Info[0].Message != "" {
		return e.Info[0].Message
	}

	return "unexpected response"
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	Captcha  string `json:"g-recaptcha-response"`
}

type keyHashRequest struct {
	PDKeyHash string `json:"PDKeyHash"`
}

// VaultStorageStatus reports whether the user's vault is stored on a mobile device.
func (c *Client) VaultStorageStatus(ctx context.Context, safleID string) (bool, error) {
	env, err := c.do(ctx, http.MethodGet, c.authURL+"/auth/safleid-status/"+url.PathEscape(safleID), nil, "")
	if err != nil {
		return false, err
	}

	if env.StatusCode != http.StatusOK {
		return false, errors.Wrap(ErrAuth, env.message())
	}

	var data struct {
		VaultStorage struct {
			Mobile bool `json:"mobile"`
		} `json:"vaultStorage"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return false, errors.Wrap(err, "failed to decode vault storage status")
	}

	return data.VaultStorage.Mobile, nil
}

// Login exchanges the PDKey hash for a bearer token.
func (c *Client) Login(ctx context.Context, safleID string, pdKeyHash string, captcha string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, c.apiURL+"/auth/login", loginRequest{
		UserName: safleID,
		Password: pdKeyHash,
		Captcha:  captcha,
	}, "")
	if err != nil {
		return "", err
	}

	if env.StatusCode != loginSuccessStatus {
		return "", errors.Wrap(ErrAuth, env.message())
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return "", errors.Wrap(ErrAuth, "login response carries no token")
	}

	return data.Token, nil
}

// RetrieveVault returns the encrypted vault blob.
func (c *Client) RetrieveVault(ctx context.Context, pdKeyHash string, token string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, c.apiURL+"/vault/retrieve", keyHashRequest{PDKeyHash: pdKeyHash}, token)
	if err != nil {
		return "", err
	}

	var data struct {
		Vault string `json:"vault"`
		Data  struct {
			Vault string `json:"vault"`
		} `json:"data"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", errors.Wrap(err, "failed to decode vault")
	}

	vault := data.Data.Vault
	if vault == "" {
		vault = data.Vault
	}
	if vault == "" {
		return "", errors.Wrap(ErrAuth, env.message())
	}

	return vault, nil
}

// RetrieveEncryptionKey returns the encrypted vault key bytes.
func (c *Client) RetrieveEncryptionKey(ctx context.Context, pdKeyHash string, token string) ([]byte, error) {
	env, err := c.do(ctx, http.MethodPost, c.apiURL+"/vault/retrieve-encryption-key", keyHashRequest{PDKeyHash: pdKeyHash}, token)
	if err != nil {
		return nil, err
	}

	var data struct {
		EncryptedEncryptionKey session.DecryptionKey `json:"encryptedEncryptionKey"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, errors.Wrap(err, "failed to decode encryption key")
	}
	if len(data.EncryptedEncryptionKey) == 0 {
		return nil, errors.Wrap(ErrAuth, env.message())
	}

	return data.EncryptedEncryptionKey, nil
}

func (c *Client) do(ctx context.Context, method string, target string, body any, token string) (*envelope, error) {
	log := util.LogFromContext(ctx)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Msg("Cloud request failed")
		return nil, errors.Wrapf(err, "failed to call %s", req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(ErrAuth, "status %d from %s", resp.StatusCode, req.URL.Path)
	}
	if env.StatusCode == 0 {
		env.StatusCode = resp.StatusCode
	}

	log.Debug().Str("path", req.URL.Path).Int("status", env.StatusCode).Msg("Cloud request done")

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.Wrap(ErrAuth, env.message())
	}

	return &env, nil
}
