package scanner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind classifies a transport-level failure. The retry policy only
// ever retries the transient kinds (Timeout, ConnectionRefused).
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindConnectionRefused ErrorKind = "connection_refused"
	KindTLS               ErrorKind = "tls_error"
	KindTooManyRedirects  ErrorKind = "too_many_redirects"
	KindOther             ErrorKind = "other"
)

// TransportError wraps a fetch failure with its classification.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transient reports whether the failure may succeed on a later attempt.
func (e *TransportError) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindConnectionRefused
}

// errRedirectCap is returned by the redirect callback when the cap is hit.
var errRedirectCap = errors.New("stopped after 10 redirects")

// Classify maps an error returned by the HTTP client to a TransportError.
// Already-classified errors pass through unchanged.
func Classify(err error) *TransportError {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr
	}

	if errors.Is(err, errRedirectCap) {
		return &TransportError{Kind: KindTooManyRedirects, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &TransportError{Kind: KindTimeout, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return &TransportError{Kind: KindConnectionRefused, Err: err}
	}

	var certErr *tls.CertificateVerificationError
	var recErr tls.RecordHeaderError
	var unkAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invErr x509.CertificateInvalidError
	if errors.As(err, &certErr) || errors.As(err, &recErr) ||
		errors.As(err, &unkAuth) || errors.As(err, &hostErr) || errors.As(err, &invErr) {
		return &TransportError{Kind: KindTLS, Err: err}
	}

	return &TransportError{Kind: KindOther, Err: err}
}
