package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// DialAndLoginIMAP connects over TLS and logs in.
func DialAndLoginIMAP(ctx context.Context, addr, username, password string, tlsCfg *tls.Config) (*imapclient.Client, error) {
	if addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: tlsCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Best-effort close on context cancel.
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })

	if err := c.Login(username, password).Wait(); err != nil {
		stop()
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

// appendSent stores raw in the configured Sent folder, flagged as seen.
func (m *Mailer) appendSent(ctx context.Context, raw []byte, at time.Time) error {
	port := m.cfg.IMAPPort
	if port == 0 {
		port = 993
	}
	addr := net.JoinHostPort(m.cfg.IMAPHost, strconv.Itoa(port))
	c, err := DialAndLoginIMAP(ctx, addr, m.cfg.Sender, m.cfg.Password, &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: m.cfg.IMAPHost,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Logout().Wait(); err != nil {
			log.Printf("[notify] imap logout: %v", err)
		}
		_ = c.Close()
	}()

	cmd := c.Append(m.cfg.SentFolder, int64(len(raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagSeen},
		Time:  at,
	})
	if _, err := cmd.Write(raw); err != nil {
		return fmt.Errorf("imap append write: %w", err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap append close: %w", err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("imap append %s: %w", m.cfg.SentFolder, err)
	}
	log.Printf("[notify] sent copy stored folder=%s bytes=%d", m.cfg.SentFolder, len(raw))
	return nil
}
