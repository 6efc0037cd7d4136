// Package msgclient is a typed HTTP client for the usermsg service API.
package msgclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type Message struct {
	ID         string     `json:"id"`
	Body       string     `json:"body"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	SentAt     time.Time  `json:"sentAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

type Contact struct {
	ID           string    `json:"id"`
	WithUserID   string    `json:"withUserId"`
	Preview      string    `json:"preview"`
	LatestSentAt time.Time `json:"latestSentAt"`
	Unread       int64     `json:"unread"`
}

type sendRequest struct {
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

func (c *Client) Send(ctx context.Context, receiverID, body string) (Message, error) {
	var out Message
	err := c.do(ctx, http.MethodPost, "/messages", sendRequest{ReceiverID: receiverID, Body: body}, &out)
	return out, err
}

func (c *Client) Conversation(ctx context.Context, userID string) ([]Message, error) {
	var out []Message
	err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	err := c.do(ctx, http.MethodGet, "/contacts", nil, &out)
	return out, err
}

// UnreadCount returns the caller's total unread count, or the unread count
// from a single user when from is non-empty.
func (c *Client) UnreadCount(ctx context.Context, from string) (int64, error) {
	path := "/messages/unread/count"
	if from != "" {
		path += "?from=" + url.QueryEscape(from)
	}
	var out unreadCountResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/read", nil, nil)
}

func (c *Client) Delete(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
