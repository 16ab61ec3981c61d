package authui

import "time"

// UIConfig contains the tunables of the login and registration screens.
type UIConfig struct {
	// LoginRedirectDelay is how long the login success message is shown
	// before navigating to the welcome screen
	LoginRedirectDelay time.Duration `env:"LOGIN_REDIRECT_DELAY" default:"1s"`

	// RegisterRedirectDelay is how long the registration success message is
	// shown before navigating back to the login screen
	RegisterRedirectDelay time.Duration `env:"REGISTER_REDIRECT_DELAY" default:"1500ms"`

	// GuardSubmit disables submitting while a submission is in flight
	GuardSubmit bool `env:"GUARD_SUBMIT" default:"true"`

	// ViewTTL is how long a page view may stay unattached to its event
	// stream before it is reaped
	ViewTTL time.Duration `env:"VIEW_TTL" default:"30m"`

	// SweepInterval is the period of the view and navigation state janitors
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"1m"`

	// NavStateTTL bounds how long a navigation state handoff can be redeemed
	NavStateTTL time.Duration `env:"NAV_STATE_TTL" default:"5m"`

	// KeepAliveInterval is the period of comment frames on event streams
	KeepAliveInterval time.Duration `env:"KEEP_ALIVE_INTERVAL" default:"15s"`
}

// DefaultUIConfig returns the configuration used when nothing is set.
func DefaultUIConfig() UIConfig {
	return UIConfig{
		LoginRedirectDelay:    time.Second,
		RegisterRedirectDelay: 1500 * time.Millisecond,
		GuardSubmit:           true,
		ViewTTL:               30 * time.Minute,
		SweepInterval:         time.Minute,
		NavStateTTL:           5 * time.Minute,
		KeepAliveInterval:     15 * time.Second,
	}
}
