package service

import "github.com/google/uuid"

// StatusPublisher pushes process status changes to connected dashboard
// clients. Publishing must never block a request.
type StatusPublisher interface {
	PublishProcessStatus(processID uuid.UUID, status string)
}

// RequestMeta carries the request origin recorded in signature evidence.
type RequestMeta struct {
	IP        string
	UserAgent string
}
