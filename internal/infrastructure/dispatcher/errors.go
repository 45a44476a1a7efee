package dispatcher

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/h2market/h2trade/internal/core/domain"
)

// errorEnvelope covers both error shapes seen from the marketplace:
// {"msg": "..."} and {"error": "..."}.
type errorEnvelope struct {
	Msg   string `json:"msg"`
	Error string `json:"error"`
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(code int) domain.ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.KindUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.KindValidation
	case http.StatusNotFound:
		return domain.KindNotFound
	default:
		return domain.KindUnknown
	}
}

func normalizeStatus(code int, body []byte) *domain.Error {
	return &domain.Error{
		Kind:       KindForStatus(code),
		Message:    serverMessage(code, body),
		StatusCode: code,
	}
}

func serverMessage(code int, body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Msg != "" {
			return env.Msg
		}
		if env.Error != "" {
			return env.Error
		}
	}
	if text := http.StatusText(code); text != "" {
		return strings.ToLower(text)
	}
	return "unexpected status"
}

// normalizeTransport covers every failure where no response was received,
// including client timeouts and context cancellation.
func normalizeTransport(err error) *domain.Error {
	return domain.NewError(domain.KindNetwork, "could not reach the marketplace, please try again", err)
}
