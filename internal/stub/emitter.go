// internal/stub/emitter.go
package stub

import (
	"pathfinder-checker/internal/model"
)

// Emitter delivers the stub server's two observable event kinds to
// subscribers: footprint data worth downstream inspection and errors raised
// while handling inbound traffic. Handlers are registered before the server
// starts and invoked synchronously in request-handling context; there is no
// queue and a slow subscriber never blocks delivery of the HTTP response,
// which has already been written.
type Emitter struct {
	dataHandlers  []func(model.Envelope)
	errorHandlers []func(error)
}

// OnFootprintData registers a handler for received footprint payloads,
// notably RequestFulfilled envelopes.
func (e *Emitter) OnFootprintData(handler func(model.Envelope)) {
	e.dataHandlers = append(e.dataHandlers, handler)
}

// OnError registers a handler for per-request processing errors.
func (e *Emitter) OnError(handler func(error)) {
	e.errorHandlers = append(e.errorHandlers, handler)
}

func (e *Emitter) emitData(env model.Envelope) {
	for _, h := range e.dataHandlers {
		h(env)
	}
}

func (e *Emitter) emitError(err error) {
	for _, h := range e.errorHandlers {
		h(err)
	}
}
