package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPSender entrega los codigos de confirmacion por SMTP.
// Con useTLS la conexion es TLS implicito (465); si no, se intenta STARTTLS cuando el servidor lo ofrece.
type SMTPSender struct {
	addr    string
	host    string
	auth    smtp.Auth
	from    mail.Address
	useTLS  bool
	timeout time.Duration
	dialer  func(ctx context.Context, network, addr string) (net.Conn, error)
	clock   func() time.Time
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	fromAddr, err := mail.ParseAddress(strings.TrimSpace(from))
	if err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if name := strings.TrimSpace(fromName); name != "" {
		fromAddr.Name = name
	}
	if port == 0 {
		port = 587
	}
	s := &SMTPSender{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		host:    host,
		from:    *fromAddr,
		useTLS:  useTLS,
		timeout: 15 * time.Second,
		clock:   time.Now,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	d := &net.Dialer{Timeout: s.timeout}
	s.dialer = d.DialContext
	return s, nil
}

func (s *SMTPSender) SendConfirmationCode(ctx context.Context, toEmail string, code string, expiresAt time.Time) error {
	to, err := mail.ParseAddress(strings.TrimSpace(toEmail))
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	msg := buildMessage(s.from, *to, confirmationSubject, confirmationBody(code, expiresAt), s.clock())
	return s.send(ctx, to.Address, msg)
}

// send abre una conexion por mensaje; el deadline sale del ctx o del timeout del sender.
func (s *SMTPSender) send(ctx context.Context, to string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := s.dialer(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = s.clock().Add(s.timeout)
	}
	_ = conn.SetDeadline(deadline)

	tlsConfig := &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}
	if s.useTLS {
		conn = tls.Client(conn, tlsConfig)
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !s.useTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.from.Address); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

const confirmationSubject = "Confirm your RecipeShare account"

func confirmationBody(code string, expiresAt time.Time) string {
	return fmt.Sprintf(
		"Welcome to RecipeShare!\n\nYour confirmation code is %s.\nIt expires at %s UTC.\n\nIf you did not sign up, ignore this message.\n",
		code,
		expiresAt.UTC().Format("2006-01-02 15:04"),
	)
}

// buildMessage arma un mensaje text/plain con CRLF y el asunto codificado en RFC 2047.
func buildMessage(from, to mail.Address, subject, body string, at time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) { b.WriteString(k + ": " + v + "\r\n") }
	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", at.UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
