// Command client is a terminal chat client for manual testing against a
// running server. It logs in, joins the live channel, prints incoming
// frames and sends every stdin line as a message to the configured peer.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"COURIER_SERVER_ADDR,default=localhost:8080"`
	UserID        string `env:"COURIER_USER_ID,required=true"`
	PeerID        string `env:"COURIER_PEER_ID,required=true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := login(config.ServerAddress, config.UserID)
	if err != nil {
		return exitRuntime, fmt.Errorf("login failed: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx,
		fmt.Sprintf("ws://%s/ws", config.ServerAddress), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not reach server at %s: %w", config.ServerAddress, err)
	}
	defer conn.Close()

	join, _ := json.Marshal(map[string]any{
		"event": "join",
		"data":  map[string]string{"token": token},
	})
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}
	color.Green.Printf("Joined as %s, talking to %s\n", config.UserID, config.PeerID)

	// Incoming frames are printed as they arrive; the read loop ends when
	// the connection drops or the context is canceled.
	go func() {
		defer stop()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			printFrame(raw)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if line == "" {
				continue
			}
			if err := send(config.ServerAddress, token, config.UserID, config.PeerID, line); err != nil {
				color.Red.Printf("Send failed: %v\n", err)
			}
		}
	}
}

func login(address, userID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"userId": userID})
	resp, err := http.Post(fmt.Sprintf("http://%s/login", address), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func send(address, token, senderID, receiverID, content string) error {
	body, _ := json.Marshal(map[string]string{
		"senderId":   senderID,
		"receiverId": receiverID,
		"content":    content,
	})
	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("http://%s/api/messages", address), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func printFrame(raw []byte) {
	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	switch frame.Event {
	case "new-message":
		var m struct {
			SenderID string `json:"senderId"`
			Content  string `json:"content"`
		}
		if err := json.Unmarshal(frame.Data, &m); err == nil {
			color.Cyan.Printf("%s> %s\n", m.SenderID, m.Content)
		}
	case "user-typing":
		var p struct {
			SenderID string `json:"senderId"`
			IsTyping bool   `json:"isTyping"`
		}
		if err := json.Unmarshal(frame.Data, &p); err == nil && p.IsTyping {
			color.Gray.Printf("%s is typing...\n", p.SenderID)
		}
	case "notification":
		var n struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(frame.Data, &n); err == nil {
			color.Yellow.Printf("[notification] %s\n", n.Title)
		}
	default:
		color.Gray.Printf("[%s] %s\n", frame.Event, string(frame.Data))
	}
}
