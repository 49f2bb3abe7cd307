package util

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewProxyFunc creates a proxy function based on configuration.
// Configured URLs are parsed once; with none set, the standard
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment variables apply.
func NewProxyFunc(httpProxy, httpsProxy string) (func(*http.Request) (*url.URL, error), error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment, nil
	}

	parse := func(name, raw string) (*url.URL, error) {
		if raw == "" {
			return nil, nil
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid %s %q", name, raw)
		}
		return u, nil
	}

	httpURL, err := parse("http_proxy", httpProxy)
	if err != nil {
		return nil, err
	}
	httpsURL, err := parse("https_proxy", httpsProxy)
	if err != nil {
		return nil, err
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsURL != nil {
			return httpsURL, nil
		}
		if httpURL != nil {
			return httpURL, nil
		}
		return http.ProxyFromEnvironment(req)
	}, nil
}
