package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Service sends WhatsApp messages through the Twilio Messages API.
type Service struct {
	accountSID string
	authToken  string
	fromNumber string
	toNumber   string
	baseURL    string
	client     *http.Client
}

func NewService(accountSID, authToken, fromNumber, toNumber string) *Service {
	return &Service{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		toNumber:   toNumber,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether the Twilio credentials are present.
func (s *Service) Configured() bool {
	return s.accountSID != "" && s.authToken != "" && s.fromNumber != "" && s.toNumber != ""
}

// Recipient returns the configured destination number.
func (s *Service) Recipient() string {
	return s.toNumber
}

// FormatPrice renders a price for messages: two decimals for prices at
// or above one unit, six for sub-unit prices so small coins stay
// readable.
func FormatPrice(price float64) string {
	if price >= 1 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.6f", price)
}

// ThresholdMessage builds the alert text for a simple threshold alert.
func ThresholdMessage(symbol, direction string, price, threshold float64) string {
	arrow := "📈"
	word := "por encima de"
	if direction == "below" {
		arrow = "📉"
		word = "por debajo de"
	}
	return fmt.Sprintf(
		"🚨 *ALERTA DE PRECIO* %s\n\n*%s* está %s tu umbral.\n\nPrecio actual: $%s\nUmbral: $%s\n\n%s",
		arrow, symbol, word,
		FormatPrice(price), FormatPrice(threshold),
		timestampLine(),
	)
}

// AdvancedMessage builds the alert text for an advanced alert trigger.
func AdvancedMessage(symbol, reason string, price float64) string {
	return fmt.Sprintf(
		"🔔 *ALERTA AVANZADA*\n\n*%s*: %s\n\nPrecio actual: $%s\n\n%s",
		symbol, reason, FormatPrice(price),
		timestampLine(),
	)
}

// Time first, date second, the order recipients are used to
func timestampLine() string {
	now := time.Now().UTC()
	return fmt.Sprintf("⏰ Hora: %s (%s) UTC", now.Format("15:04:05"), now.Format("02/01/2006"))
}

// noRetryStatus reports whether a Twilio error status indicates a
// request that will fail identically on retry.
func noRetryStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// Send delivers one message, retrying once on transient failures.
// Client errors (bad request, auth) are not retried.
func (s *Service) Send(ctx context.Context, body string) error {
	if !s.Configured() {
		return fmt.Errorf("whatsapp service is not configured")
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			log.Printf("Retrying WhatsApp delivery (attempt %d)", attempt+1)
		}

		retryable, err := s.send(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("whatsapp delivery failed after retry: %w", lastErr)
}

func (s *Service) send(ctx context.Context, body string) (retryable bool, err error) {
	form := url.Values{}
	form.Set("From", whatsappAddr(s.fromNumber))
	form.Set("To", whatsappAddr(s.toNumber))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var created struct {
			SID string `json:"sid"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.SID != "" {
			log.Printf("WhatsApp message sent, sid=%s", created.SID)
		}
		return false, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var twilioErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &twilioErr)

	err = fmt.Errorf("twilio returned status %d (code %d): %s",
		resp.StatusCode, twilioErr.Code, twilioErr.Message)
	return !noRetryStatus(resp.StatusCode), err
}

func whatsappAddr(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
