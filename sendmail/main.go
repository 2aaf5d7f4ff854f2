// Command sendmail pushes a single test message through an SMTP relay so the
// storefront's mail settings can be checked before notifications are turned
// on. Point it at Mailpit to preview locally.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type probe struct {
	addr     string
	username string
	password string
	from     string
	to       string
	subject  string
}

func main() {
	_ = godotenv.Load()

	p := probe{
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
	}
	flag.StringVar(&p.addr, "addr", envOr("SMTP_ADDR", "localhost:2025"), "SMTP relay host:port")
	flag.StringVar(&p.from, "from", envOr("MAIL_FROM", "test@example.com"), "sender address")
	flag.StringVar(&p.to, "to", envOr("ADMIN_EMAIL", "hello@yopmail.com"), "recipient address")
	flag.StringVar(&p.subject, "subject", envOr("GALLERY_NAME", "Gallery")+" mail test", "subject line")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	fields := logrus.Fields{"addr": p.addr, "to": p.to}

	if err := p.send(time.Now()); err != nil {
		log.WithError(err).WithFields(fields).Fatal("mail not sent")
	}
	log.WithFields(fields).Info("mail sent")
}

func (p probe) send(now time.Time) error {
	var auth smtp.Auth
	if p.username != "" {
		host, _, err := net.SplitHostPort(p.addr)
		if err != nil {
			return fmt.Errorf("smtp addr %q: %w", p.addr, err)
		}
		auth = smtp.PlainAuth("", p.username, p.password, host)
	}
	return smtp.SendMail(p.addr, auth, p.from, []string{p.to}, p.message(now))
}

func (p probe) message(now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", p.from)
	fmt.Fprintf(&b, "To: %s\r\n", p.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", p.subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("This is a test email sent by the storefront sendmail tool.\r\n")
	fmt.Fprintf(&b, "Relay: %s\r\n", p.addr)
	return []byte(b.String())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
