// Package notify delivers verification codes without ever blocking or
// failing the request that triggered them. Deliveries run on a bounded
// background queue with a per-send deadline; all delivery failures are
// logged and swallowed, because a broken mail provider must not break the
// account lifecycle.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/farmhub/auth-api/internal/domain"
	"github.com/farmhub/auth-api/internal/infrastructure/smtp"
	"github.com/farmhub/auth-api/internal/infrastructure/sns"
)

const otpSubject = "Your Farmhub Verification Code"

// Sender is the gateway-facing interface.
type Sender interface {
	// SendOTP queues delivery of a verification code. It returns immediately;
	// the outcome is only observable in logs.
	SendOTP(user *domain.User, code string)
}

type job struct {
	channel string // "email" | "sms"
	to      string
	run     func(ctx context.Context) error
}

// Dispatcher fans deliveries out to the configured channels. Email is always
// attempted; SMS is attempted additionally when the identity carries a phone
// number and an SMS sender is configured.
type Dispatcher struct {
	mailer  smtp.Mailer
	sms     sns.SMSSender
	log     *slog.Logger
	timeout time.Duration

	queue chan job
	wg    sync.WaitGroup
}

func NewDispatcher(mailer smtp.Mailer, sms sns.SMSSender, log *slog.Logger, timeout time.Duration, queueSize int) *Dispatcher {
	d := &Dispatcher{
		mailer:  mailer,
		sms:     sms,
		log:     log,
		timeout: timeout,
		queue:   make(chan job, queueSize),
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

func (d *Dispatcher) SendOTP(user *domain.User, code string) {
	body := fmt.Sprintf("Hello,\n\nYour verification code is %s. It expires in 10 minutes.\n\nIf you did not request this, you can ignore this message.", code)
	d.enqueue(job{
		channel: "email",
		to:      user.Email,
		run: func(context.Context) error {
			return d.mailer.SendEmail(user.Email, otpSubject, body)
		},
	})
	if d.sms != nil && user.Phone != nil && *user.Phone != "" {
		phone := *user.Phone
		d.enqueue(job{
			channel: "sms",
			to:      phone,
			run: func(ctx context.Context) error {
				return d.sms.SendSMS(ctx, phone, "Farmhub verification code: "+code)
			},
		})
	}
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case d.queue <- j:
	default:
		d.log.Warn("notification queue full, delivery dropped", "channel", j.channel, "to", j.to)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

// deliver runs one send under the configured deadline. Senders that cannot
// be cancelled (net/smtp) are abandoned when the deadline passes; the
// goroutine finishes on its own and its result is discarded.
func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- j.run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			d.log.Warn("notification delivery failed", "channel", j.channel, "to", j.to, "err", err)
		}
	case <-ctx.Done():
		d.log.Warn("notification delivery timed out", "channel", j.channel, "to", j.to)
	}
}
