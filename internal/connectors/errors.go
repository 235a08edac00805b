package connectors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DuplicateMarker - префикс, которым Apps Script помечает повторную запись за ту же дату
const DuplicateMarker = "DUPLICATE_ENTRY"

var ErrRemoteNotConfigured = errors.New("remote endpoint is not configured")

// RemoteFormatError - ответ пришел, но это не DashboardData (нет обязательных полей, битый JSON).
type RemoteFormatError struct {
	Missing []string
	Cause   error
}

func (e *RemoteFormatError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("invalid dashboard payload: missing %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid dashboard payload: %v", e.Cause)
}

func (e *RemoteFormatError) Unwrap() error { return e.Cause }

// RemoteServiceError - эндпоинт сам сообщил об ошибке или упал транспорт.
// StatusCode == 0 означает, что до HTTP-ответа дело не дошло.
type RemoteServiceError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // Из заголовка Retry-After (429/503)
	Cause      error
}

func (e *RemoteServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RemoteServiceError) Unwrap() error { return e.Cause }

// Temporary - есть ли смысл повторять запрос
func (e *RemoteServiceError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// SubmissionError - запись отклонена эндпоинтом или не дошла.
type SubmissionError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// DisplayMessage - текст для пользователя без служебного маркера.
func (e *SubmissionError) DisplayMessage() string {
	return stripDuplicateMarker(e.Error())
}

// SubmissionDuplicateError - сервер отказал, потому что запись уже существует.
// Разворачивается в *SubmissionError, так что errors.As работает для обоих типов.
type SubmissionDuplicateError struct {
	*SubmissionError
}

func (e *SubmissionDuplicateError) Unwrap() error { return e.SubmissionError }

func newSubmissionError(status int, msg string, cause error) error {
	base := &SubmissionError{StatusCode: status, Message: msg, Cause: cause}
	if strings.Contains(msg, DuplicateMarker) {
		return &SubmissionDuplicateError{SubmissionError: base}
	}
	return base
}

func stripDuplicateMarker(msg string) string {
	return strings.TrimSpace(strings.Replace(msg, DuplicateMarker+":", "", 1))
}

// DisplayMessage достает пользовательский текст из любой ошибки отправки.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr.DisplayMessage()
	}
	return stripDuplicateMarker(err.Error())
}

// IsDuplicate проверяет, что сервер отказал из-за дубликата.
func IsDuplicate(err error) bool {
	var dup *SubmissionDuplicateError
	return errors.As(err, &dup)
}
