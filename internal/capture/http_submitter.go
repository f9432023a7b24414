package capture

import (
	"bitwise74/capture-api/pkg/middleware"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// ServerError is a non 200 answer from the server
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with %d", e.Status)
	}

	return fmt.Sprintf("server responded with %d: %s", e.Status, e.Message)
}

// HTTPSubmitter posts submissions to the analyze endpoint of a running server
type HTTPSubmitter struct {
	BaseURL string
	// Token is the session cookie value, see Login
	Token  string
	Client *http.Client
}

type analyzeResponse struct {
	Success    bool   `json:"success"`
	AIResponse string `json:"ai_response"`
}

func (s *HTTPSubmitter) Submit(ctx context.Context, sub Submission) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="capture.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}

	if _, err := part.Write(sub.Image); err != nil {
		return "", err
	}

	if err := mw.WriteField("comment", sub.Comment); err != nil {
		return "", err
	}

	if err := mw.WriteField("rating", strconv.Itoa(sub.Rating)); err != nil {
		return "", err
	}

	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url("/analyze"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: s.Token})

	resp, err := client(s.Client).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readServerError(resp)
	}

	var data analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode response, %w", err)
	}

	if !data.Success {
		return "", &ServerError{Status: resp.StatusCode, Message: "submission not accepted"}
	}

	return data.AIResponse, nil
}

func (s *HTTPSubmitter) url(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}

// Login exchanges credentials for a session token
func Login(ctx context.Context, c *http.Client, baseURL, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client(c).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readServerError(resp)
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookie && ck.Value != "" {
			return ck.Value, nil
		}
	}

	return "", fmt.Errorf("no %s cookie in login response", middleware.SessionCookie)
}

func client(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}

	return c
}

func readServerError(resp *http.Response) error {
	var data struct {
		Error string `json:"error"`
	}

	// Not every error has a JSON body, the status alone is enough then
	_ = json.NewDecoder(resp.Body).Decode(&data)

	return &ServerError{Status: resp.StatusCode, Message: data.Error}
}
