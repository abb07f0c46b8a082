package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"amokanban/pkg/logger"
)

const SignatureHeader = "X-Webhook-Signature"

// WebhookSignatureVerification checks the hex HMAC-SHA256 of the raw body
// against X-Webhook-Signature, with or without a "sha256=" prefix.
func WebhookSignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := extractSignature(r)

			if signature == "" {
				rejectUnsigned(w, log, r, "Missing "+SignatureHeader+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectUnsigned(w, log, r, "Failed to read request body")
				return
			}

			if !VerifySignature(body, signature, secret) {
				rejectUnsigned(w, log, r, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(SignatureHeader))
	if signature, found := strings.CutPrefix(header, "sha256="); found {
		return signature
	}
	return header
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(body []byte, signature, secret string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(signature)))
}

func rejectUnsigned(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Webhook verification failed",
		"request_id", GetRequestID(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
}
