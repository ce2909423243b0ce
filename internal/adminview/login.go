package adminview

import "context"

// LoginResult is the server's answer to a login attempt. Rejections
// carry either the remaining attempt budget or, once it is spent, a
// lockout duration in seconds.
type LoginResult struct {
	OK                bool
	AttemptsRemaining *int
	RetryAfter        *int
}

// AuthService is the slice of the API the login screen talks to.
type AuthService interface {
	Login(ctx context.Context, password string) (LoginResult, error)
}

// LoginController drives the admin login form: it surfaces the
// remaining attempt budget on failures and runs the lockout countdown
// that disables submit until it reaches zero.
type LoginController struct {
	svc AuthService

	submitting        bool
	authenticated     bool
	errorMessage      string
	attemptsRemaining *int
	countdown         int
}

func NewLoginController(svc AuthService) *LoginController {
	return &LoginController{svc: svc}
}

func (c *LoginController) Authenticated() bool { return c.authenticated }

func (c *LoginController) Submitting() bool { return c.submitting }

func (c *LoginController) ErrorMessage() string { return c.errorMessage }

func (c *LoginController) AttemptsRemaining() *int { return c.attemptsRemaining }

// CountdownSeconds is the seconds left on the lockout, zero when none
// is active.
func (c *LoginController) CountdownSeconds() int { return c.countdown }

// CanSubmit reports whether the submit control is enabled. It is
// disabled while a request is in flight and for the whole lockout
// countdown.
func (c *LoginController) CanSubmit() bool {
	return !c.submitting && c.countdown == 0
}

// Submit sends the password. Calls while the control is disabled are
// dropped, not queued.
func (c *LoginController) Submit(ctx context.Context, password string) error {
	if !c.CanSubmit() {
		return nil
	}

	c.submitting = true
	c.errorMessage = ""
	res, err := c.svc.Login(ctx, password)
	c.submitting = false

	if err != nil {
		c.errorMessage = "Unable to reach the server. Check your connection and try again."
		return err
	}

	if res.OK {
		c.authenticated = true
		c.attemptsRemaining = nil
		c.countdown = 0
		return nil
	}

	if res.RetryAfter != nil {
		c.countdown = *res.RetryAfter
		c.attemptsRemaining = nil
		c.errorMessage = "Too many attempts. Try again shortly."
		return nil
	}

	c.attemptsRemaining = res.AttemptsRemaining
	c.errorMessage = "Invalid password"
	return nil
}

// Tick advances the lockout countdown by one second. When it reaches
// zero the submit control re-enables with no further user action.
func (c *LoginController) Tick() {
	if c.countdown > 0 {
		c.countdown--
		if c.countdown == 0 {
			c.errorMessage = ""
		}
	}
}
