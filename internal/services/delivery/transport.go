package delivery

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
)

// NewHTTPClient returns a client whose transport negotiates HTTP/2 over TLS
// and falls back to HTTP/1.1 for plain endpoints.
func NewHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to configure http2 transport: %w", err)
	}

	return &http.Client{Transport: transport}, nil
}

// restyLogger routes resty's internal messages to the application logger.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...), "component", "delivery")
}

func (restyLogger) Warnf(format string, v ...any) {
	logger.Warn(fmt.Sprintf(format, v...), "component", "delivery")
}

func (restyLogger) Debugf(format string, v ...any) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "delivery")
}
