package fetch

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
)

// NewHTTPClient builds the client used for direct media fetches. proxyStr may
// be empty (direct connection) or an http, https, socks5 or socks4 URL; an
// unusable proxy falls back to a direct client. timeout 0 means no per-request
// deadline, callers bound long transfers through ctx instead.
func NewHTTPClient(proxyStr string, timeout time.Duration, log zerolog.Logger) *http.Client {
	if proxyStr == "" {
		return &http.Client{Timeout: timeout}
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid proxy URL, going direct")
		return &http.Client{Timeout: timeout}
	}

	var transport *http.Transport

	switch proxyURL.Scheme {
	case "http", "https":
		log.Info().Str("proxy", proxyURL.Host).Msg("Using HTTP proxy for downloads")
		transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	case "socks5":
		log.Info().Str("proxy", proxyURL.Host).Msg("Using SOCKS5 proxy for downloads")
		auth := &proxy.Auth{}
		if proxyURL.User != nil {
			auth.User = proxyURL.User.Username()
			if pass, ok := proxyURL.User.Password(); ok {
				auth.Password = pass
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("SOCKS5 dialer error, going direct")
			break
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	case "socks4":
		log.Info().Str("proxy", proxyURL.Host).Msg("Using SOCKS4 proxy for downloads")
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout: 10 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("SOCKS4 dialer error, going direct")
			break
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	default:
		log.Warn().Str("scheme", proxyURL.Scheme).Msg("Unsupported proxy scheme, going direct")
	}

	if transport == nil {
		return &http.Client{Timeout: timeout}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
