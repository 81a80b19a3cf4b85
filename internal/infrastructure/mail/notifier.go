package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"CourtMonitor/internal/config"
	"CourtMonitor/internal/ports"
)

const defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

var updateTemplate = template.Must(template.New("update").Parse(`<h1>Pronađena je nova sudska objava!</h1>
<p>Pronašli smo novu objavu za pojam koji pratite: <strong>{{.Query}}</strong></p>
<hr>
<h2>Detalji objave:</h2>
<p><strong>Naziv:</strong> {{.Filing.Title}}</p>
<p><strong>Broj predmeta:</strong> {{.Filing.CaseNumber}}</p>
<p><strong>Sud:</strong> {{.Filing.Court}}</p>
<p><strong>Datum objave:</strong> {{.Filing.Date}}</p>
<hr>
<h2>AI Analiza:</h2>
<div style="white-space: pre-wrap; background-color: #f5f5f5; padding: 15px; border-radius: 5px;">{{.Narrative}}</div>
<br>
{{if .Filing.DetailLink}}<p><a href="{{.Filing.DetailLink}}">Pogledajte originalnu objavu na e-Oglasnoj ploči</a></p>{{end}}
<br><br>
<hr>
<p style="font-size: 12px; color: #888;">
Ne želite više primati ove obavijesti? <a href="{{.UnsubscribeLink}}">Odjavite se</a>.
</p>
`))

// Notifier sends update emails through the SendGrid v3 API.
type Notifier struct {
	endpoint      string
	apiKey        string
	from          address
	publicBaseURL string
	client        *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers API credentials, sender and the base URL for unsubscribe links.
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	endpoint := cfg.SendGrid.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.SendGrid.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Notifier{
		endpoint:      endpoint,
		apiKey:        cfg.SendGrid.APIKey,
		from:          address{Email: cfg.From, Name: cfg.FromName},
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		client:        &http.Client{Timeout: timeout},
	}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type contentPart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type message struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []contentPart     `json:"content"`
}

// Notify posts one update email.
func (n *Notifier) Notify(ctx context.Context, note ports.Notification) error {
	if n.apiKey == "" || n.from.Email == "" || n.client == nil {
		return fmt.Errorf("sendgrid notifier misconfigured")
	}
	if note.Recipient == "" {
		return fmt.Errorf("notification has no recipient")
	}

	html, err := n.render(note)
	if err != nil {
		return err
	}

	body, err := json.Marshal(message{
		Personalizations: []personalization{{To: []address{{Email: note.Recipient}}}},
		From:             n.from,
		Subject:          Subject(note.Query),
		Content: []contentPart{
			{Type: "text/plain", Value: plainText(note, n.UnsubscribeLink(note.UnsubscribeToken))},
			{Type: "text/html", Value: html},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sendgrid error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return nil
}

// UnsubscribeLink builds the public link that deactivates a subscription.
func (n *Notifier) UnsubscribeLink(token string) string {
	return n.publicBaseURL + "/api/unsubscribe/" + token
}

// Subject is the email subject for a query.
func Subject(query string) string {
	return "Nova objava za Vašu pretragu: " + query
}

func (n *Notifier) render(note ports.Notification) (string, error) {
	var buf bytes.Buffer
	err := updateTemplate.Execute(&buf, struct {
		ports.Notification
		UnsubscribeLink string
	}{note, n.UnsubscribeLink(note.UnsubscribeToken)})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func plainText(note ports.Notification, unsubscribe string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pronađena je nova sudska objava za pojam: %s\n\n", note.Query)
	fmt.Fprintf(&b, "Naziv: %s\nBroj predmeta: %s\nSud: %s\nDatum objave: %s\n\n",
		note.Filing.Title, note.Filing.CaseNumber, note.Filing.Court, note.Filing.Date)
	b.WriteString(note.Narrative)
	if note.Filing.DetailLink != "" {
		fmt.Fprintf(&b, "\n\nOriginalna objava: %s", note.Filing.DetailLink)
	}
	fmt.Fprintf(&b, "\n\nOdjava: %s\n", unsubscribe)
	return b.String()
}

// LogNotifier writes notifications to the log when no mail provider is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier logs through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification summary.
func (l *LogNotifier) Notify(_ context.Context, note ports.Notification) error {
	l.logger.Info("notification (mail disabled)",
		"recipient", note.Recipient,
		"query", note.Query,
		"case_number", note.Filing.CaseNumber,
		"date", note.Filing.Date,
		"narrative_chars", len(note.Narrative),
	)
	return nil
}
