package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies a transport-layer failure. A server response with a
// non-2xx status is not an error; only failures to complete the exchange
// are.
type ErrorKind int

const (
	ErrOther ErrorKind = iota
	ErrTimeout
	ErrDNS
	ErrTLS
	ErrConnectionRefused
	ErrTooManyRedirects
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTimeout:
		return "timeout"
	case ErrDNS:
		return "dns"
	case ErrTLS:
		return "tls"
	case ErrConnectionRefused:
		return "connection refused"
	case ErrTooManyRedirects:
		return "too many redirects"
	default:
		return "network"
	}
}

// Error is a classified transport failure for one attempt.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// errRedirectLimit is returned from the redirect policy when the hop count
// exceeds the bound; classify maps it to ErrTooManyRedirects.
var errRedirectLimit = errors.New("redirect limit exceeded")

func classify(url string, err error) *Error {
	kind := ErrOther

	var dnsErr *net.DNSError
	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError

	switch {
	case errors.Is(err, errRedirectLimit):
		kind = ErrTooManyRedirects
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.As(err, &dnsErr):
		kind = ErrDNS
	case errors.As(err, &certErr), errors.As(err, &recordErr),
		errors.As(err, &unknownAuthority), errors.As(err, &hostnameErr):
		kind = ErrTLS
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = ErrConnectionRefused
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = ErrTimeout
		}
	}

	return &Error{Kind: kind, URL: url, Err: err}
}
