package woocommerce

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the credentials and endpoints of the upstream store.
// ConsumerKey/ConsumerSecret authenticate the REST API and AuthKey is
// the shared key of the Simple JWT Login plugin.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	AuthKey        string
	RequestTimeout time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("woocommerce: base URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("woocommerce: base URL must start with http:// or https://")
	}
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return fmt.Errorf("woocommerce: consumer key and secret are required")
	}
	if c.AuthKey == "" {
		return fmt.Errorf("woocommerce: auth key is required")
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}
