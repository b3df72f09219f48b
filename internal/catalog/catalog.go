// Package catalog maps symbolic statuses to the code, phrase and default
// detail reported in the errors block of a response.
package catalog

import (
	"github.com/practice-sem-2/mtp-service/internal/api"
	"time"
)

type Status string

const (
	OK                    Status = "OK"
	Created               Status = "CREATED"
	Accepted              Status = "ACCEPTED"
	PartialContent        Status = "PARTIAL_CONTENT"
	BadRequest            Status = "BAD_REQUEST"
	Unauthorized          Status = "UNAUTHORIZED"
	Forbidden             Status = "FORBIDDEN"
	NotFound              Status = "NOT_FOUND"
	MethodNotAllowed      Status = "METHOD_NOT_ALLOWED"
	RequestTimeout        Status = "REQUEST_TIMEOUT"
	Conflict              Status = "CONFLICT"
	UnsupportedMediaType  Status = "UNSUPPORTED_MEDIA_TYPE"
	TooManyRequests       Status = "TOO_MANY_REQUESTS"
	ClientClosedRequest   Status = "CLIENT_CLOSED_REQUEST"
	InternalServerError   Status = "INTERNAL_SERVER_ERROR"
	NotImplemented        Status = "NOT_IMPLEMENTED"
	ServiceUnavailable    Status = "SERVICE_UNAVAILABLE"
	VersionNotSupported   Status = "VERSION_NOT_SUPPORTED"
	UnknownError          Status = "UNKNOWN_ERROR"
	InvalidSSLCertificate Status = "INVALID_SSL_CERTIFICATE"
)

type Entry struct {
	Code   int
	Phrase string
	Detail string
}

var entries = map[Status]Entry{
	OK:                    {200, "OK", "Request fulfilled, document follows"},
	Created:               {201, "Created", "Document created, URL follows"},
	Accepted:              {202, "Accepted", "Request accepted, processing continues off-line"},
	PartialContent:        {206, "Partial Content", "Partial content follows"},
	BadRequest:            {400, "Bad Request", "Bad request syntax or unsupported method"},
	Unauthorized:          {401, "Unauthorized", "No permission -- see authorization schemes"},
	Forbidden:             {403, "Forbidden", "Request forbidden -- authorization will not help"},
	NotFound:              {404, "Not Found", "Nothing matches the given URI"},
	MethodNotAllowed:      {405, "Method Not Allowed", "Specified method is invalid for this resource"},
	RequestTimeout:        {408, "Request Timeout", "Request timed out; try again later"},
	Conflict:              {409, "Conflict", "Request conflict"},
	UnsupportedMediaType:  {415, "Unsupported Media Type", "Entity body in unsupported format"},
	TooManyRequests:       {429, "Too Many Requests", "The user has sent too many requests in a given amount of time"},
	ClientClosedRequest:   {499, "Client Closed Request", "Full description: Client Closed Request"},
	InternalServerError:   {500, "Internal Server Error", "Server got itself in trouble"},
	NotImplemented:        {501, "Not Implemented", "Server does not support this operation"},
	ServiceUnavailable:    {503, "Service Unavailable", "The server cannot process the request due to a high load"},
	VersionNotSupported:   {505, "Version Not Supported", "Cannot fulfill request"},
	UnknownError:          {520, "Unknown Error", "Full description: Unknown Error"},
	InvalidSSLCertificate: {526, "Invalid SSL Certificate", "Full description: Invalid SSL Certificate"},
}

type Catalog struct {
	now func() time.Time
}

// New returns a catalog stamping reports with now. A nil now means time.Now.
func New(now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	return &Catalog{now: now}
}

// Lookup returns the table entry for s.
func Lookup(s Status) (Entry, bool) {
	e, ok := entries[s]
	return e, ok
}

// Resolve builds the errors block for s. The first non-empty detail replaces
// the default one. An unknown status never fails: it is reported as 520 with
// the status itself as detail.
func (c *Catalog) Resolve(s Status, detail ...string) api.Errors {
	now := c.now().Unix()

	e, ok := entries[s]
	if !ok {
		unknown := entries[UnknownError]
		return api.Errors{
			Code:   unknown.Code,
			Status: unknown.Phrase,
			Time:   now,
			Detail: string(s),
		}
	}

	report := api.Errors{
		Code:   e.Code,
		Status: e.Phrase,
		Time:   now,
		Detail: e.Detail,
	}
	for _, d := range detail {
		if d != "" {
			report.Detail = d
			break
		}
	}
	return report
}

// IsSuccess reports whether code belongs to the 2xx class.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}
