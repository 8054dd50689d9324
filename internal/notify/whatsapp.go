package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// WhatsAppDispatcher sends notifications through a WhatsApp HTTP gateway.
type WhatsAppDispatcher struct {
	apiURL   string
	apiToken string
	client   *http.Client
}

// NewWhatsAppDispatcherFromEnv builds a dispatcher from WHATSAPP_* env vars,
// or returns false when the integration is not configured.
func NewWhatsAppDispatcherFromEnv() (*WhatsAppDispatcher, bool) {
	apiURL := os.Getenv("WHATSAPP_API_URL")
	apiToken := os.Getenv("WHATSAPP_API_TOKEN")
	if apiURL == "" || apiToken == "" {
		return nil, false
	}
	return &WhatsAppDispatcher{
		apiURL:   apiURL,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, true
}

func (d *WhatsAppDispatcher) sendText(ctx context.Context, phone, message string) error {
	phone = SanitizePhone(phone)
	if phone == "" {
		return errors.New("recipient has no phone number")
	}

	body := map[string]interface{}{
		"phone":   phone,
		"message": message,
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("whatsapp error %d: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("whatsapp send failed (status %d)", resp.StatusCode)
	}
	return nil
}

func (d *WhatsAppDispatcher) SendOTP(ctx context.Context, to Contact, code string) error {
	return d.sendText(ctx, to.Phone, fmt.Sprintf("Seu código de verificação para assinatura: %s (expira em 10 minutos)", code))
}

func (d *WhatsAppDispatcher) SendEmployeeLink(ctx context.Context, to Contact, url string) error {
	return d.sendText(ctx, to.Phone, "Assine o termo de homologação pelo link: "+url)
}

func (d *WhatsAppDispatcher) SendStatusUpdate(ctx context.Context, to Contact, subject, message string) error {
	return d.sendText(ctx, to.Phone, subject+"\n"+message)
}
