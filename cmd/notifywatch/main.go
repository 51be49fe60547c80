// Command notifywatch logs in to a Foodgram API and prints the realtime
// notification events delivered to that account.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

func main() {
	base := flag.String("url", "http://localhost:8375", "API base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", os.Getenv("FOODGRAM_PASSWORD"), "account password (or FOODGRAM_PASSWORD)")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and a password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := login(ctx, *base, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	ticket, err := issueTicket(ctx, *base, token)
	if err != nil {
		log.Fatalf("ticket issuance failed: %v", err)
	}

	wsURL, err := socketURL(*base, ticket)
	if err != nil {
		log.Fatalf("bad url: %v", err)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("dial failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("connected as %s, waiting for events", *email)

	go func() {
		<-ctx.Done()
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), deadline)
		_ = conn.Close()
	}()

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			log.Fatalf("read failed: %v", err)
		}
		log.Printf("%s %s %s", ev.At.Local().Format(time.TimeOnly), ev.Type, ev.Payload)
	}
}

// socketURL maps the API base onto the notifications endpoint.
func socketURL(base, ticket string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/ws"
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String(), nil
}

func login(ctx context.Context, base, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"auth_token"`
	}
	if err := postJSON(ctx, base+"/api/auth/token/login", "", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func issueTicket(ctx context.Context, base, token string) (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := postJSON(ctx, base+"/api/ws/ticket", token, nil, &out); err != nil {
		return "", err
	}
	if out.Ticket == "" {
		return "", errors.New("empty ticket")
	}
	return out.Ticket, nil
}

func postJSON(ctx context.Context, target, token string, body []byte, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", target, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
