// Package service provides business logic for the chat ledger.
package service

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/tracing"
)

var (
	// ErrInvalidArgument is returned when a request is missing required fields.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict is returned when a message id is already taken by a
	// different exchange.
	ErrConflict = errors.New("conflict")
	// ErrPartialDelete is returned when a conversation's messages were removed
	// but the conversation document could not be.
	ErrPartialDelete = errors.New("conversation partially deleted")
)

var tracer = tracing.Tracer("service")

// endSpan records err on span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
