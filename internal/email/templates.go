package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var (
	magicLinkTmpl = template.Must(template.New("magic").Parse(
		`<p>Click the link below to sign in to your coaching portal (expires in {{.TTL}}):</p>` +
			`<p><a href="{{.Link}}">Sign in</a></p>` +
			`<p>If you did not ask for this, you can ignore this email.</p>`))

	confirmTmpl = template.Must(template.New("confirm").Parse(
		`<p>Welcome! Confirm your email address to start your onboarding (link expires in {{.TTL}}):</p>` +
			`<p><a href="{{.Link}}">Confirm my email</a></p>`))
)

type linkData struct {
	Link string
	TTL  string
}

func MagicLink(to, link string, ttl time.Duration) (Message, error) {
	return render(magicLinkTmpl, to, "Your sign-in link", link, ttl)
}

func Confirmation(to, link string, ttl time.Duration) (Message, error) {
	return render(confirmTmpl, to, "Confirm your email", link, ttl)
}

func render(t *template.Template, to, subject, link string, ttl time.Duration) (Message, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, linkData{Link: link, TTL: humanize(ttl)}); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String(), Link: link}, nil
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
