package obs

import (
	"context"
	"errors"
	"log"
	"time"
)

type ctxKey string

const (
	RequestIDKey  ctxKey = "req_id"
	SubjectKeyCtx ctxKey = "subject"
)

// WithSubject tags ctx so timing lines can be correlated per subject.
func WithSubject(ctx context.Context, subjectKey string) context.Context {
	return context.WithValue(ctx, SubjectKeyCtx, subjectKey)
}

// Time logs the duration of op when the returned func is deferred with
// the caller's named error. Cancellation is logged as such, not as a failure.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)
	subject, _ := ctx.Value(SubjectKeyCtx).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			if errors.Is(*errp, context.Canceled) {
				log.Printf("req_id=%s subject=%s op=%s dur=%dms cancelled", reqID, subject, name, dur.Milliseconds())
				return
			}
			log.Printf("req_id=%s subject=%s op=%s dur=%dms err=%v", reqID, subject, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("req_id=%s subject=%s op=%s dur=%dms", reqID, subject, name, dur.Milliseconds())
	}
}
