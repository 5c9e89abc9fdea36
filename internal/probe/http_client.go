package probe

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// maxConnsPerHost bounds connections to a single monitored host
const maxConnsPerHost = 20

// NewHTTPClient creates the shared website probe client. Certificate
// verification is disabled and the total number of pooled connections is
// bounded by poolSize. Timeouts are applied per request.
func NewHTTPClient(poolSize int) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        poolSize,
			MaxIdleConnsPerHost: maxConnsPerHost,
			MaxConnsPerHost:     maxConnsPerHost,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
			DisableCompression:  false,
		},
	}
}
