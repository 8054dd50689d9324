package notify

import (
	"context"
	"log"
	"strings"
)

// Contact identifies a notification recipient.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Dispatcher delivers workflow notifications. Delivery is best-effort: the
// workflow never fails because a message could not be sent.
type Dispatcher interface {
	SendOTP(ctx context.Context, to Contact, code string) error
	SendEmployeeLink(ctx context.Context, to Contact, url string) error
	SendStatusUpdate(ctx context.Context, to Contact, subject, message string) error
}

// SanitizePhone normalizes a Brazilian phone number to E.164, assuming the
// +55 country code when none is present.
func SanitizePhone(phone string) string {
	var digits strings.Builder
	for _, ch := range phone {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if !strings.HasPrefix(d, "55") && (len(d) == 10 || len(d) == 11) {
		d = "55" + d
	}
	return "+" + d
}

// Multi fans each notification out to every configured channel and returns
// the last error, if any, after trying all of them.
type Multi []Dispatcher

func (m Multi) SendOTP(ctx context.Context, to Contact, code string) error {
	var last error
	for _, d := range m {
		if err := d.SendOTP(ctx, to, code); err != nil {
			last = err
		}
	}
	return last
}

func (m Multi) SendEmployeeLink(ctx context.Context, to Contact, url string) error {
	var last error
	for _, d := range m {
		if err := d.SendEmployeeLink(ctx, to, url); err != nil {
			last = err
		}
	}
	return last
}

func (m Multi) SendStatusUpdate(ctx context.Context, to Contact, subject, message string) error {
	var last error
	for _, d := range m {
		if err := d.SendStatusUpdate(ctx, to, subject, message); err != nil {
			last = err
		}
	}
	return last
}

// LogDispatcher is the fallback when no delivery channel is configured. It
// only logs, which is also what development environments want.
type LogDispatcher struct{}

func (LogDispatcher) SendOTP(_ context.Context, to Contact, code string) error {
	log.Printf("notify: OTP for %s <%s>: %s", to.Name, to.Email, code)
	return nil
}

func (LogDispatcher) SendEmployeeLink(_ context.Context, to Contact, url string) error {
	log.Printf("notify: signing link for %s <%s>: %s", to.Name, to.Email, url)
	return nil
}

func (LogDispatcher) SendStatusUpdate(_ context.Context, to Contact, subject, message string) error {
	log.Printf("notify: status update for %s <%s>: %s: %s", to.Name, to.Email, subject, message)
	return nil
}
