package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SwaggerConfig controls access to the API documentation endpoint
type SwaggerConfig struct {
	Enabled bool
	// AllowedIPs restricts access to the listed IPs or CIDR ranges;
	// empty allows all
	AllowedIPs []string
}

// SwaggerGuard hides the documentation endpoint when disabled and optionally
// restricts it to an IP allowlist
func SwaggerGuard(cfg SwaggerConfig) gin.HandlerFunc {
	var nets []*net.IPNet
	var ips []net.IP
	for _, entry := range cfg.AllowedIPs {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				nets = append(nets, network)
			}
		} else if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
		}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		if len(nets) == 0 && len(ips) == 0 {
			c.Next()
			return
		}

		client := net.ParseIP(c.ClientIP())
		if client != nil {
			for _, ip := range ips {
				if ip.Equal(client) {
					c.Next()
					return
				}
			}
			for _, network := range nets {
				if network.Contains(client) {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponse(dto.ErrCodeForbidden, "Access to documentation is restricted", requestID(c)))
	}
}
