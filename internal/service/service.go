// Package service implements the InkCircle use cases on top of the store.
//
// Each service validates input, runs one atomic store mutation per aggregate
// and converts store failures into domain errors from internal/errors.
package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

const tracerName = "github.com/inkcircle/inkcircle-server/internal/service"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storeError converts a store failure into a domain error. Domain errors
// raised inside a mutate function pass through untouched.
func storeError(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var derr *domainerrors.Error
	if errors.As(err, &derr) {
		return err
	}

	var serr *store.Error
	if !errors.As(err, &serr) {
		return err
	}

	switch {
	case errors.Is(serr, store.ErrNotFound):
		return domainerrors.NotFound(notFound)
	case errors.Is(serr, store.ErrAlreadyExists):
		if serr.Index == "" {
			return domainerrors.AlreadyExists("already exists").WithCause(err)
		}
		return domainerrors.AlreadyExists(serr.Index+" already in use").
			WithDetails(map[string]string{serr.Index: "is already taken"}).
			WithCause(err)
	case errors.Is(serr, store.ErrConflictRetriesExhausted):
		return domainerrors.Conflict("too many concurrent updates, try again").WithCause(err)
	default:
		return err
	}
}
