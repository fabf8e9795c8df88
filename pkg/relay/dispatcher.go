package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/smtp-relay/pkg/metrics"
)

// ErrSession is the single error returned for any SMTP session failure:
// connection refused, TLS handshake, rejected credentials, rejected
// message, or timeout. Collapsing these is a deliberate contract — the
// relay never leaks mail-server internals to its callers. The detailed
// cause is logged server-side only.
var ErrSession = errors.New("SMTP authentication failed or email rejected")

// Dispatcher sends one message per call over a fresh SMTP session.
type Dispatcher interface {
	SendMail(ctx context.Context, smtp SMTPConfig, mail Envelope) error
}

type dispatcher struct {
	log         *zap.SugaredLogger
	dialTimeout time.Duration
}

// NewDispatcher creates a gomail-backed Dispatcher. dialTimeout bounds the
// whole session (connect, TLS, auth, send); zero disables the bound.
func NewDispatcher(log *zap.SugaredLogger, dialTimeout time.Duration) Dispatcher {
	return &dispatcher{
		log:         log.Named("dispatcher"),
		dialTimeout: dialTimeout,
	}
}

// SendMail opens an SMTP session to smtp.Host:smtp.Port with the supplied
// credentials, authenticates, and transmits one plain-text message. The
// session is closed before returning; nothing is reused across requests
// and nothing is retried.
func (d *dispatcher) SendMail(ctx context.Context, smtp SMTPConfig, mail Envelope) error {
	dial := gomail.NewDialer(smtp.Host, smtp.Port, smtp.User, smtp.Pass)
	// NewDialer already derives SSL from port 465; an explicit secure flag
	// overrides that. TLSConfig stays nil so certificate validation is
	// always enforced.
	if smtp.Secure != nil {
		dial.SSL = *smtp.Secure
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", mail.From)
	msg.SetHeader("To", mail.To)
	msg.SetHeader("Subject", mail.Subject)
	msg.SetBody("text/plain", mail.Body)

	if err := d.runSession(ctx, dial, msg); err != nil {
		// Host/port only. Credentials and envelope addresses stay out of
		// the log stream.
		d.log.Warnw("SMTP session failed",
			"host", smtp.Host,
			"port", smtp.Port,
			"error", err)
		metrics.MailSendFailure.WithLabelValues(smtp.Host).Inc()
		return ErrSession
	}

	d.log.Infow("Mail relayed", "host", smtp.Host, "port", smtp.Port)
	metrics.MailSendSuccess.WithLabelValues(smtp.Host).Inc()
	return nil
}

// runSession performs dial (which verifies the credentials via the AUTH
// handshake), sends the message, and closes the session. gomail has no
// context support, so the session runs in its own goroutine and is
// abandoned on timeout or caller cancellation; the goroutine still closes
// the connection when the server eventually responds.
func (d *dispatcher) runSession(ctx context.Context, dial *gomail.Dialer, msg *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		sc, err := dial.Dial()
		if err != nil {
			done <- err
			return
		}
		defer func() {
			if cerr := sc.Close(); cerr != nil {
				d.log.Debugw("Error closing SMTP session", "error", cerr)
			}
		}()
		done <- gomail.Send(sc, msg)
	}()

	if d.dialTimeout <= 0 {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(d.dialTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}
