package apperr

import "net/http"

// HTTPStatus maps err's code to a response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text shown to clients. Causes stay in the logs.
func PublicMessage(err error) string {
	switch CodeOf(err) {
	case CodeUnauthenticated:
		return "Authentication required"
	case CodeValidation:
		return "Invalid request"
	case CodeNotFound:
		return "Not found"
	case CodeConflict:
		return "Request conflicts with existing data"
	case CodeRemote:
		return "Storage service unavailable"
	default:
		return "Internal server error"
	}
}
