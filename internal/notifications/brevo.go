package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

var ErrMissingRecipient = errors.New("missing recipient email")

// BrevoClient sends transactional appointment emails through the Brevo SMTP API.
type BrevoClient struct {
	apiKey     string
	sender     brevoContact
	sandbox    bool
	endpoint   string
	httpClient *http.Client
}

// NewBrevoClient returns nil when the API key or sender is not configured.
func NewBrevoClient(apiKey, senderEmail, senderName string, sandbox bool) *BrevoClient {
	apiKey, senderEmail = strings.TrimSpace(apiKey), strings.TrimSpace(senderEmail)
	if apiKey == "" || senderEmail == "" {
		return nil
	}
	if strings.TrimSpace(senderName) == "" {
		senderName = senderEmail
	}
	return &BrevoClient{
		apiKey:     apiKey,
		sender:     brevoContact{Name: senderName, Email: senderEmail},
		sandbox:    sandbox,
		endpoint:   defaultBrevoEndpoint,
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

// emailKind describes one appointment email: who receives it, how it reads
// and the Brevo tag it is filed under.
type emailKind struct {
	tag       string
	tmpl      *template.Template
	recipient func(Booking) brevoContact
	subject   func(Booking) string
}

var (
	patientConfirmation = emailKind{
		tag:       "appointment-confirmed",
		tmpl:      patientConfirmationTmpl,
		recipient: patientContact,
		subject: func(b Booking) string {
			return fmt.Sprintf("Appointment confirmed with Dr. %s", b.Doctor.Name)
		},
	}
	doctorAlert = emailKind{
		tag:  "appointment-doctor-alert",
		tmpl: doctorAlertTmpl,
		recipient: func(b Booking) brevoContact {
			return brevoContact{Name: b.Doctor.Name, Email: b.Doctor.Email}
		},
		subject: func(b Booking) string {
			return fmt.Sprintf("New appointment on %s at %s", b.Slot.Date, b.Slot.Label)
		},
	}
	cancellationNotice = emailKind{
		tag:       "appointment-cancelled",
		tmpl:      cancellationTmpl,
		recipient: patientContact,
		subject: func(b Booking) string {
			return fmt.Sprintf("Appointment on %s cancelled", b.Slot.Date)
		},
	}
)

func patientContact(b Booking) brevoContact {
	return brevoContact{Name: b.Patient.Name, Email: b.Patient.Email}
}

func (c *BrevoClient) SendBookingConfirmation(ctx context.Context, b Booking) (string, error) {
	return c.send(ctx, patientConfirmation, b)
}

func (c *BrevoClient) SendDoctorBookingAlert(ctx context.Context, b Booking) (string, error) {
	return c.send(ctx, doctorAlert, b)
}

func (c *BrevoClient) SendCancellationNotice(ctx context.Context, b Booking) (string, error) {
	return c.send(ctx, cancellationNotice, b)
}

// send renders kind for b and posts it. It returns the Brevo message id.
func (c *BrevoClient) send(ctx context.Context, kind emailKind, b Booking) (string, error) {
	if c == nil {
		return "", errors.New("brevo client is nil")
	}
	to := kind.recipient(b)
	if strings.TrimSpace(to.Email) == "" {
		return "", fmt.Errorf("brevo %s: %w", kind.tag, ErrMissingRecipient)
	}
	body, err := renderEmail(kind.tmpl, b)
	if err != nil {
		return "", fmt.Errorf("brevo %s render: %w", kind.tag, err)
	}

	payload := brevoSendRequest{
		Sender:      c.sender,
		To:          []brevoContact{to},
		Subject:     kind.subject(b),
		HtmlContent: body,
		Tags:        []string{kind.tag},
	}
	if c.sandbox {
		payload.Headers = map[string]string{"X-Sib-Sandbox": "drop"}
	}
	return c.post(ctx, payload)
}

func (c *BrevoClient) post(ctx context.Context, payload brevoSendRequest) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("brevo marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("brevo create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("brevo send failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("brevo decode response: %w", err)
	}
	if strings.TrimSpace(out.MessageID) == "" {
		return "", errors.New("brevo response missing messageId")
	}
	return out.MessageID, nil
}

type brevoSendRequest struct {
	Sender      brevoContact      `json:"sender"`
	To          []brevoContact    `json:"to"`
	Subject     string            `json:"subject"`
	HtmlContent string            `json:"htmlContent"`
	Tags        []string          `json:"tags,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}
