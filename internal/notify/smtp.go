package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
)

const verificationSubject = "Formini - Code de Vérification"

var verificationTemplate = template.Must(template.New("verification").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>Votre code Formini</h2>
  <p>Utilisez le code suivant pour vérifier votre compte :</p>
  <div style="font-size: 32px; font-weight: bold; letter-spacing: 8px; font-family: monospace; background: #f97316; color: white; padding: 20px; text-align: center; border-radius: 10px;">{{.Code}}</div>
  <p>Ce code expire dans {{.Minutes}} minutes. Ne le partagez avec personne.</p>
</div>`))

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTP sends verification codes through an SMTP relay.
type SMTP struct {
	cfg SMTPConfig
	now func() time.Time
}

var _ Notifier = (*SMTP)(nil)

// NewSMTP validates cfg and returns an SMTP notifier.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("smtp host, username and password are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTP{cfg: cfg, now: time.Now}, nil
}

// SendVerificationCode renders the code message and delivers it.
func (s *SMTP) SendVerificationCode(ctx context.Context, to, code string, expiresAt time.Time) error {
	msg, err := s.buildMessage(to, code, expiresAt)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (s *SMTP) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	return opts
}

func (s *SMTP) buildMessage(to, code string, expiresAt time.Time) (*mail.Msg, error) {
	minutes := int(expiresAt.Sub(s.now()).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return nil, fmt.Errorf("render verification email: %w", err)
	}

	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.FromFormat("Formini", s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %s: %w", to, err)
	}
	msg.Subject(verificationSubject)
	msg.SetBodyString(mail.TypeTextHTML, body.String())
	msg.AddAlternativeString(mail.TypeTextPlain, fmt.Sprintf("Votre code de vérification Formini : %s (valable %d minutes)", code, minutes))
	return msg, nil
}
