package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PushService sends notifications through an Expo-compatible push API.
type PushService struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

func NewPushService(endpoint, accessToken string, timeout time.Duration) *PushService {
	return &PushService{
		endpoint:    endpoint,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

type pushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

type pushTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type pushResp struct {
	Data   []pushTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *PushService) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	payload, err := json.Marshal([]pushMessage{{
		To:    token,
		Title: title,
		Body:  body,
		Data:  data,
		Sound: "default",
	}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.accessToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var api pushResp
	_ = json.Unmarshal(respBody, &api)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push send failed: status=%d body=%s", resp.StatusCode, truncate(respBody, 256))
	}
	if len(api.Errors) > 0 {
		return fmt.Errorf("push send failed: %s: %s", api.Errors[0].Code, api.Errors[0].Message)
	}
	for _, t := range api.Data {
		if t.Status == "error" {
			return fmt.Errorf("push ticket error: %s (%s)", t.Message, t.Details.Error)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
