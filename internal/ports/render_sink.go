package ports

import "delivery-trajectory-service/internal/domain"

// RenderSink observes engine output. Calls are made from the animation
// goroutine, so implementations must return quickly.
type RenderSink interface {
	RenderFrame(f domain.Frame)
	MoveCamera(e domain.CameraEvent)
}
