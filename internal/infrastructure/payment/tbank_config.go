package payment

import "errors"

// TBankConfig contains configuration for the T-Bank acquiring API v2
type TBankConfig struct {
	// BaseURL is the API endpoint, the production gateway when empty
	BaseURL string
	// TerminalKey identifies the merchant terminal
	TerminalKey string
	// Password signs every request token
	Password string
	// NotificationURL receives payment status callbacks
	NotificationURL string
}

// Errors for configuration validation
var (
	ErrTBankMissingTerminalKey = errors.New("tbank: missing terminal key")
	ErrTBankMissingPassword    = errors.New("tbank: missing password")
	ErrTBankMissingNotifyURL   = errors.New("tbank: missing notification URL")
)

// Validate validates the configuration
func (c *TBankConfig) Validate() error {
	if c.TerminalKey == "" {
		return ErrTBankMissingTerminalKey
	}
	if c.Password == "" {
		return ErrTBankMissingPassword
	}
	if c.NotificationURL == "" {
		return ErrTBankMissingNotifyURL
	}
	if c.BaseURL == "" {
		c.BaseURL = tbankAPIBaseURL
	}
	return nil
}
