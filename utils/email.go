package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	models "github.com/phillip/charity-campaigns-go/models"
)

// email request payload for ZeptoMail API
type emailRequest struct {
	From     emailAddress  `json:"from"`
	To       []toRecipient `json:"to"`
	Subject  string        `json:"subject"`
	HtmlBody string        `json:"htmlbody"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type toRecipient struct {
	Email emailWithName `json:"email_address"`
}

type emailWithName struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// ZeptoMailer sends HTML email through the ZeptoMail HTTP API.
type ZeptoMailer struct {
	APIURL string // e.g. https://api.zeptomail.com/v1.1/email
	APIKey string // e.g. Zoho-enczapikey xxxxx
	From   string
	Client *http.Client
}

func NewZeptoMailer(apiURL, apiKey, from string) (*ZeptoMailer, error) {
	if apiURL == "" || apiKey == "" || from == "" {
		return nil, fmt.Errorf("missing required email config")
	}
	return &ZeptoMailer{
		APIURL: apiURL,
		APIKey: apiKey,
		From:   from,
		Client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (m *ZeptoMailer) Send(ctx context.Context, to, toName, subject, body string) error {
	payload := emailRequest{
		From: emailAddress{Address: m.From},
		To: []toRecipient{
			{Email: emailWithName{Address: to, Name: toName}},
		},
		Subject:  subject,
		HtmlBody: body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", m.APIKey)

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zeptomail API error: %s", resp.Status)
	}
	return nil
}

// NotifyDonation emails the campaign owner about a new donation.
func (m *ZeptoMailer) NotifyDonation(ctx context.Context, owner models.User, c models.Campaign, d models.Donation) error {
	subject := fmt.Sprintf("New donation to %s", c.Title)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p><strong>%s</strong> donated %.2f to <em>%s</em>.</p><p>Raised so far: %.2f of %.2f.</p>",
		html.EscapeString(owner.Name),
		html.EscapeString(d.Name),
		d.Amount,
		html.EscapeString(c.Title),
		c.Raised,
		c.Goal,
	)
	return m.Send(ctx, owner.Email, owner.Name, subject, body)
}
