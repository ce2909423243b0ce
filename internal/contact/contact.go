// Package contact holds the public lead-capture form: field model,
// validation, and the submit state machine.
package contact

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// DefaultService is the service dropdown's initial option.
const DefaultService = "General Inquiry"

// Form is the lead-capture payload. Website is the honeypot: it is
// always sent, never shown to the user, and never validated.
type Form struct {
	Name         string `json:"name"`
	BusinessName string `json:"businessName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Service      string `json:"service"`
	Message      string `json:"message"`
	Website      string `json:"website"`
}

// DefaultForm returns a blank form with the service dropdown on its
// default option.
func DefaultForm() Form {
	return Form{Service: DefaultService}
}

// Permissive local@domain.tld shape. Full RFC 5322 is intentionally
// out of scope; the server re-validates anyway.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Validate checks the required fields. It runs before any network
// call so an invalid form never leaves the page.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("Name is required")
	}
	if !ValidEmail(strings.TrimSpace(f.Email)) {
		return errors.New("A valid email address is required")
	}
	if strings.TrimSpace(f.Message) == "" {
		return errors.New("Message is required")
	}
	return nil
}

// Service is the slice of the API the form submits through. The
// returned string is the server's confirmation message.
type Service interface {
	SubmitLead(ctx context.Context, f Form) (string, error)
}

// Status is the submit machine's state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// TransportErrorMessage is shown when the request never reached the
// server, as opposed to the server rejecting the submission.
const TransportErrorMessage = "Unable to reach the server. Check your connection and try again."

// Submitter runs the idle/loading/success/error cycle around a Form.
type Submitter struct {
	svc     Service
	form    Form
	status  Status
	message string
}

func NewSubmitter(svc Service) *Submitter {
	return &Submitter{svc: svc, form: DefaultForm(), status: StatusIdle}
}

func (s *Submitter) Form() *Form { return &s.form }

func (s *Submitter) Status() Status { return s.status }

func (s *Submitter) Message() string { return s.message }

// Submit validates and sends the form. On success every field resets
// to its default, including the service option, and the server's
// confirmation message is kept for display. Duplicate submissions
// while a request is in flight are dropped.
func (s *Submitter) Submit(ctx context.Context) error {
	if s.status == StatusLoading {
		return nil
	}

	if err := s.form.Validate(); err != nil {
		s.status = StatusError
		s.message = err.Error()
		return err
	}

	s.status = StatusLoading
	s.message = ""

	msg, err := s.svc.SubmitLead(ctx, s.form)
	if err != nil {
		s.status = StatusError
		if rm, ok := rejectionMessage(err); ok {
			s.message = rm
		} else {
			s.message = TransportErrorMessage
		}
		return err
	}

	s.status = StatusSuccess
	s.message = msg
	s.form = DefaultForm()
	return nil
}

// rejectionMessage extracts the server's error text when the request
// reached the server and was rejected, distinguishing it from
// transport failures.
func rejectionMessage(err error) (string, bool) {
	var r interface{ RejectedMessage() string }
	if errors.As(err, &r) {
		return r.RejectedMessage(), true
	}
	return "", false
}
