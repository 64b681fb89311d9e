package report

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"call-audit-go/internal/config"
	"call-audit-go/internal/logger"
)

// Mailer sends the generated report as an email attachment over
// SMTP with implicit TLS. The pack carries no mail library, so the MIME
// envelope is assembled by hand.
type Mailer struct {
	cfg config.Config
	log *logger.Logger
}

func NewMailer(cfg config.Config, log *logger.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// Configured reports whether SMTP credentials and a recipient are set.
// Unconfigured email is a skip, not an error.
func (m *Mailer) Configured() bool {
	return m.cfg.SMTPUser != "" && m.cfg.SMTPPassword != "" && m.cfg.EmailTo != ""
}

// SendReport mails the xlsx at path to the configured recipient.
func (m *Mailer) SendReport(path, periodText string) error {
	if !m.Configured() {
		return fmt.Errorf("smtp not configured")
	}
	attachment, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	subject := fmt.Sprintf("Call report for %s", periodText)
	if periodText == "" {
		subject = fmt.Sprintf("Call report from %s", time.Now().Format("02.01.2006"))
	}
	body := fmt.Sprintf(`Hello,

Attached is the operator call-quality report.

Period: %s
Generated: %s

Regards,
Automated call analysis
`, periodText, time.Now().Format("02.01.2006 15:04"))

	msg, err := buildMessage(m.cfg.SMTPUser, m.cfg.EmailTo, subject, body, filepath.Base(path), attachment)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	m.log.WithField("to", m.cfg.EmailTo).Info("sending report email")
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	m.log.Info("report email sent")
	return nil
}

func buildMessage(from, to, subject, body, filename string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	textPart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, err
	}

	attPart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
	})
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(attachment)
	// RFC 2045 line length limit
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(attPart, "%s\r\n", encoded[:76]); err != nil {
			return nil, err
		}
		encoded = encoded[76:]
	}
	if _, err := fmt.Fprintf(attPart, "%s\r\n", encoded); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Mailer) send(msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.SMTPHost})
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(m.cfg.SMTPUser); err != nil {
		return err
	}
	if err := client.Rcpt(m.cfg.EmailTo); err != nil {
		return err
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}
