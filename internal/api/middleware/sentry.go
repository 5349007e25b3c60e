package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
)

// SentryMiddleware opens a Sentry transaction per request and tags it with
// request and principal identifiers. It is a no-op when Sentry was never
// initialized.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		tx := sentry.StartTransaction(r.Context(),
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			transactionOptions(r)...)
		defer tx.Finish()

		r = r.WithContext(sentry.SetHubOnContext(tx.Context(), hub))

		hub.Scope().SetContext("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"remote_addr": r.RemoteAddr,
		})
		if reqID := GetRequestID(r.Context()); reqID != "" {
			hub.Scope().SetTag("request_id", reqID)
			tx.SetTag("request_id", reqID)
		}

		// Report the panic here, then let the outer recoverer produce the
		// 500 response.
		defer func() {
			if v := recover(); v != nil {
				tx.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), v)
				panic(v)
			}
		}()

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		tx.Status = httpStatusToSpanStatus(status)
		tx.SetData("http.response.status_code", status)

		// Principal tags become available after the auth middleware has run.
		if p := GetPrincipal(r.Context()); p != nil {
			userID := strconv.FormatInt(p.UserID, 10)
			hub.Scope().SetTag("user_id", userID)
			hub.Scope().SetTag("org_id", strconv.FormatInt(p.OrgID, 10))
			tx.SetTag("user_id", userID)
		}

		if status >= 500 {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)))
		}
	})
}

// transactionOptions continues an incoming distributed trace when the caller
// propagated one.
func transactionOptions(r *http.Request) []sentry.SpanOption {
	opts := []sentry.SpanOption{
		sentry.WithOpName("http.server"),
		sentry.WithTransactionSource(sentry.SourceURL),
	}
	if trace := r.Header.Get("sentry-trace"); trace != "" {
		opts = append(opts, sentry.ContinueFromHeaders(trace, r.Header.Get("baggage")))
	}
	return opts
}

// httpStatusToSpanStatus converts an HTTP status code to a Sentry span status.
func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	switch {
	case status < 400:
		return sentry.SpanStatusOK
	case status == 401:
		return sentry.SpanStatusUnauthenticated
	case status == 403:
		return sentry.SpanStatusPermissionDenied
	case status == 404:
		return sentry.SpanStatusNotFound
	case status == 429:
		return sentry.SpanStatusResourceExhausted
	case status < 500:
		return sentry.SpanStatusInvalidArgument
	case status == 503:
		return sentry.SpanStatusUnavailable
	case status == 504:
		return sentry.SpanStatusDeadlineExceeded
	default:
		return sentry.SpanStatusInternalError
	}
}
