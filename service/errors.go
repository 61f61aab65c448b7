package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"syscall"

	"google.golang.org/api/googleapi"
)

type errTmpIf interface{ Temporary() bool }
type errTmp struct{ error }

func (t errTmp) Temporary() bool    { return true }
func (t *errTmp) Unwrap() error     { return t.error }
func MakeTemporary(err error) error { return &errTmp{err} }

type errFatalIf interface{ Fatal() bool }
type errFatal struct{ error }

func (t errFatal) Fatal() bool    { return true }
func (t *errFatal) Unwrap() error { return t.error }
func MakeFatal(err error) error   { return &errFatal{err} }

// Temporary inspects the error trace and returns whether the error is transient
func Temporary(err error) bool {
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	//First override some default syscall temporary statuses
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EIO, syscall.EBUSY, syscall.ECANCELED, syscall.ECONNABORTED, syscall.ECONNRESET, syscall.ENOMEM, syscall.EPIPE:
			return true
		}
	}

	//first check explicitely marked error
	var tmp errTmpIf
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	var gapiError *googleapi.Error
	if errors.As(err, &gapiError) {
		return gapiError.Code == 429 || gapiError.Code == 500
	}
	var remote ErrRemote
	if errors.As(err, &remote) {
		return temporaryStatus(remote.Status)
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

func temporaryStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// Fatal inspects the error and returns whether it's a fatal error
func Fatal(err error) bool {
	var tmp errFatalIf
	if errors.As(err, &tmp) {
		return tmp.Fatal()
	}
	return false
}

// MergeErrors, appending texts
// if priorityToErr is true, priority to the fatal error then to the temporary
// else, priority to no error, then to the temporary and finally to the fatal error.
func MergeErrors(priorityToError bool, err error, newErrs ...error) error {
	if len(newErrs) == 0 {
		return err
	}
	newErr := newErrs[0]

	if newErr == nil {
		if !priorityToError {
			return nil
		}
	} else if err == nil {
		err = newErr
	} else if priorityToError != Temporary(err) {
		err = fmt.Errorf("%w\n %v", err, newErr)
	} else {
		err = fmt.Errorf("%w\n %v", newErr, err)
	}
	return MergeErrors(priorityToError, err, newErrs[1:]...)
}

// ErrNotFound is returned when a remote resource does not exist (HTTP 404)
type ErrNotFound struct {
	Type string
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.ID)
}

// ErrAlreadyExists is returned when a remote resource with the same identifier exists (HTTP 409)
type ErrAlreadyExists struct {
	Type string
	ID   string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Type, e.ID)
}

// ErrUnauthorized is returned on HTTP 401 and 403
type ErrUnauthorized struct {
	Status  int
	Body    string
	Details []ErrorDetail
}

func (e ErrUnauthorized) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("unauthorized (%d): %s", e.Status, formatDetails(e.Details))
	}
	return fmt.Sprintf("unauthorized (%d): %s", e.Status, e.Body)
}

// ErrRemote is an upstream failure carrying the status and the raw body
type ErrRemote struct {
	Method  string
	URL     string
	Status  int
	Body    string
	Details []ErrorDetail
}

func (e ErrRemote) Error() string {
	msg := e.Body
	if len(e.Details) > 0 {
		msg = formatDetails(e.Details)
	}
	if e.Method == "" {
		return fmt.Sprintf("remote error %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.Status, http.StatusText(e.Status), msg)
}

// ErrLocalFile is returned when an asset file is missing or unreadable
type ErrLocalFile struct {
	Path string
	Err  error
}

func (e ErrLocalFile) Error() string {
	return fmt.Sprintf("local file %s: %v", e.Path, e.Err)
}

func (e ErrLocalFile) Unwrap() error { return e.Err }

// ErrCancelled reports an operation interrupted by the context
type ErrCancelled struct {
	Err error
}

func (e ErrCancelled) Error() string {
	return fmt.Sprintf("cancelled: %v", e.Err)
}

func (e ErrCancelled) Unwrap() error { return e.Err }

// ErrorDetail is one entry of the {"errors": [...]} body returned by the API
type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Type    string `json:"type,omitempty"`
	Source  string `json:"source,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func (d ErrorDetail) String() string {
	s := d.Message
	if d.Type != "" {
		s += fmt.Sprintf(" (type: %s)", d.Type)
	}
	if d.Field != "" {
		s += fmt.Sprintf(" (field: %s)", d.Field)
	}
	if d.Source != "" {
		s += fmt.Sprintf(" (source: %s)", d.Source)
	}
	if d.TraceID != "" {
		s += fmt.Sprintf(" (trace_id: %s)", d.TraceID)
	}
	return s
}

func formatDetails(details []ErrorDetail) string {
	msgs := make([]string, len(details))
	for i, d := range details {
		msgs[i] = d.String()
	}
	return strings.Join(msgs, "; ")
}

// ParseErrorDetails decodes the error body of the API. Returns nil if the body has another format.
func ParseErrorDetails(body []byte) []ErrorDetail {
	var payload struct {
		Errors []ErrorDetail `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.Errors
}

// ResponseError converts a non-2xx response into an ErrRemote
func ResponseError(method, url string, status int, body []byte) error {
	return ErrRemote{
		Method:  method,
		URL:     url,
		Status:  status,
		Body:    string(body),
		Details: ParseErrorDetails(body),
	}
}

// MapStatus converts an ErrRemote into the typed error matching its status.
// typ and id describe the resource targeted by the request.
func MapStatus(err error, typ, id string) error {
	var remote ErrRemote
	if !errors.As(err, &remote) {
		return err
	}
	switch remote.Status {
	case http.StatusNotFound:
		return ErrNotFound{Type: typ, ID: id}
	case http.StatusConflict:
		return ErrAlreadyExists{Type: typ, ID: id}
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized{Status: remote.Status, Body: remote.Body, Details: remote.Details}
	}
	return remote
}

// IsNotFound returns true if the error trace contains an ErrNotFound
func IsNotFound(err error) bool {
	var e ErrNotFound
	return errors.As(err, &e)
}

// IsAlreadyExists returns true if the error trace contains an ErrAlreadyExists
func IsAlreadyExists(err error) bool {
	var e ErrAlreadyExists
	return errors.As(err, &e)
}

// Cancelled wraps the context error if the context is done, nil otherwise
func Cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ErrCancelled{Err: err}
	}
	return nil
}
