// Command sign signs an Ed25519 login challenge with a PEM private key and
// prints the base64 signature to paste into the login page.
package main

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	keyPath := flag.String("key", "", "Path to the PEM encoded Ed25519 private key")
	challenge := flag.String("challenge", "", "Base64 challenge; fetched from -server when empty")
	server := flag.String("server", "http://localhost:12600", "Draftroom server to fetch the challenge from")
	flag.Parse()

	if err := run(*keyPath, *challenge, *server); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run(keyPath, challenge, server string) error {
	if keyPath == "" {
		return errors.New("-key is required")
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return err
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return err
	}

	if challenge == "" {
		if challenge, err = fetchChallenge(server); err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(challenge))
	if err != nil {
		return fmt.Errorf("decode challenge: %w", err)
	}

	signature := base64.StdEncoding.EncodeToString(ed25519.Sign(key, raw))

	fmt.Println(titleStyle.Render("Ed25519 login"))
	fmt.Println(labelStyle.Render("challenge"))
	fmt.Println(valueStyle.Render(challenge))
	fmt.Println(labelStyle.Render("signature"))
	fmt.Println(valueStyle.Render(signature))
	return nil
}

func parsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("not an Ed25519 private key")
	}
	return key, nil
}

func fetchChallenge(server string) (string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(server, "/") + "/auth/challenge")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Challenge, nil
}
