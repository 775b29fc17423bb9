package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// MailConfig is everything the mail channel needs. It is filled from the
// config file and the environment by the caller.
type MailConfig struct {
	Sender   string
	Password string
	SMTPHost string
	SMTPPort int

	// Optional copy into the sender's Sent folder.
	IMAPHost   string
	IMAPPort   int
	SentFolder string
}

func (c MailConfig) Validate() error {
	var errs []error
	if c.Sender == "" {
		errs = append(errs, errors.New("mail sender is required"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("mail password is required"))
	}
	if c.SMTPHost == "" {
		errs = append(errs, errors.New("smtp host is required"))
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		errs = append(errs, fmt.Errorf("smtp port %d out of range", c.SMTPPort))
	}
	return errors.Join(errs...)
}

// Mailer sends over SMTP with STARTTLS and PLAIN auth.
type Mailer struct {
	cfg MailConfig
	now func() time.Time

	dial     func(addr string) (*smtp.Client, error)
	sentCopy func(ctx context.Context, raw []byte, at time.Time) error
}

func NewMailer(cfg MailConfig) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mail config: %w", err)
	}
	m := &Mailer{cfg: cfg, now: time.Now}
	m.dial = func(addr string) (*smtp.Client, error) {
		return smtp.DialStartTLS(addr, &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.SMTPHost,
		})
	}
	if cfg.IMAPHost != "" && cfg.SentFolder != "" {
		m.sentCopy = m.appendSent
	}
	return m, nil
}

func (m *Mailer) Name() string { return "mail" }

func (m *Mailer) Send(ctx context.Context, recipient string, msg Message) error {
	if recipient == "" {
		return errors.New("no recipient")
	}
	at := m.now()

	var buf bytes.Buffer
	if err := Compose(&buf, m.cfg.Sender, recipient, msg, at); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.SMTPHost, strconv.Itoa(m.cfg.SMTPPort))
	c, err := m.dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer c.Close()

	if err := c.Auth(sasl.NewPlainClient("", m.cfg.Sender, m.cfg.Password)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.SendMail(m.cfg.Sender, []string{recipient}, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}

	if m.sentCopy != nil {
		// already delivered at this point
		if err := m.sentCopy(ctx, buf.Bytes(), at); err != nil {
			log.Printf("[notify] sent copy failed folder=%s: %v", m.cfg.SentFolder, err)
		}
	}
	return nil
}

// Compose writes a multipart message: a plain text body and the store as
// a base64 text/csv attachment.
func Compose(w io.Writer, from, to string, msg Message, date time.Time) error {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("message id: %w", err)
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return fmt.Errorf("create body: %w", err)
	}
	if _, err := io.WriteString(tw, msg.Body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}

	if msg.AttachmentPath != "" {
		if err := attach(mw, msg); err != nil {
			return err
		}
	}
	return mw.Close()
}

func attach(mw *mail.Writer, msg Message) error {
	f, err := os.Open(msg.AttachmentPath)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	var ah mail.AttachmentHeader
	ah.SetContentType("text/csv", map[string]string{"charset": "utf-8"})
	ah.Set("Content-Transfer-Encoding", "base64")
	ah.SetFilename(msg.AttachmentName)

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	if _, err := io.Copy(aw, f); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return aw.Close()
}
