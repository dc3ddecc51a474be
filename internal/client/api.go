package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/secret-echo/secret-echo/internal/message"
)

// API talks to the REST boundary. Every response uses the
// {code, message, data} envelope; a nonzero code is an error.
type API struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *API) do(method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.BaseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code != 0 {
		return fmt.Errorf("%s", env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// Account is the authenticated identity returned by register/login.
type Account struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AvatarColor string `json:"avatar_color"`
	Token       string `json:"token"`
}

func (a *API) Register(email, username, password string) (*Account, error) {
	var acct Account
	err := a.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "username": username, "password": password,
	}, &acct)
	if err != nil {
		return nil, err
	}
	a.Token = acct.Token
	return &acct, nil
}

func (a *API) Login(email, password string) (*Account, error) {
	var acct Account
	err := a.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &acct)
	if err != nil {
		return nil, err
	}
	a.Token = acct.Token
	return &acct, nil
}

// FetchMessages is the bulk fetch boundary.
func (a *API) FetchMessages() ([]message.View, error) {
	var out struct {
		Count    int            `json:"count"`
		Messages []message.View `json:"messages"`
	}
	if err := a.do(http.MethodGet, "/api/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage is the submission boundary; it returns the confirmed message
// (the AI reply arrives later over the channel).
func (a *API) SendMessage(content string) (*message.View, error) {
	var out struct {
		Message message.View `json:"message"`
	}
	if err := a.do(http.MethodPost, "/api/messages", map[string]string{
		"content": content,
	}, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}
