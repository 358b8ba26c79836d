package netdiag

import (
	"errors"
	"net"
	"net/http"
	"time"
)

// MaxRedirects caps redirects followed by the native HTTP probe.
const MaxRedirects = 5

var errTooManyRedirects = errors.New("stopped after 5 redirects")

// NewHTTPClient returns the native probe client: 10s dial, 30s to response
// headers, and either up to MaxRedirects redirects or none.
func NewHTTPClient(followRedirects bool) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: HTTPTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !followRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) > MaxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
}
