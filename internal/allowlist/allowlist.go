package allowlist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker decides which senders are analyzed, by domain
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new allowlist checker. An empty domain list allows
// every sender.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
		if domain != "" {
			normalizedDomains = append(normalizedDomains, domain)
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if len(normalizedDomains) > 0 {
		logger.Info("Initialized sender allowlist", zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// IsAllowed reports whether the sender's domain, or a parent of it, is on the list
func (c *Checker) IsAllowed(from string) bool {
	if len(c.domains) == 0 {
		return true
	}

	domain := domainOf(from)
	if domain == "" {
		c.logger.Debug("Sender has no domain", zap.String("from", from))
		return false
	}

	for _, allowed := range c.domains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			c.logger.Debug("Sender domain is allowed",
				zap.String("domain", domain),
				zap.String("email", from))
			return true
		}
	}

	c.logger.Debug("Sender domain is not allowed", zap.String("domain", domain))
	return false
}

// domainOf accepts a bare address or "Name <address>"
func domainOf(from string) string {
	address := strings.TrimSpace(from)
	if addr, err := mail.ParseAddress(address); err == nil {
		address = addr.Address
	}

	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(address[at+1:], ">"))
}
