package kernel

import (
	"log"

	"jupyterkernel/message"
)

// connection is the cheap, clonable publication handle passed to the
// embedding contract's Connected method (capability B). It never holds a
// back-pointer to the dispatcher: it only knows the iopub socket (owned
// exclusively by the dispatcher, but safe to send on concurrently thanks
// to socket.Socket's internal mutex) and the coordinator, whose
// latest_request slot supplies the parent header for asynchronous
// outputs.
type connection struct {
	iopub       sender
	coordinator *Coordinator
}

func newConnection(iopub sender, c *Coordinator) *connection {
	return &connection{iopub: iopub, coordinator: c}
}

func (c *connection) parentOrZero() message.Header {
	return c.coordinator.LatestRequest()
}

func (c *connection) PublishExecuteResult(data, metadata map[string]interface{}) error {
	parent := c.parentOrZero()
	if parent.IsZero() {
		return ErrChannelBlockage
	}
	content := message.ExecutionResult{
		ExecutionCount: c.coordinator.ExecutionCount(),
		Data:           data,
		Metadata:       metadata,
		Transient:      map[string]interface{}{},
	}
	m, err := message.Publication(message.ExecuteResult, parent, content)
	if err != nil {
		return err
	}
	if err := c.iopub.Send(m); err != nil {
		log.Printf("kernel: publish execute_result: %v", err)
		return err
	}
	return nil
}

func (c *connection) PublishStream(name, text string) error {
	parent := c.parentOrZero()
	if parent.IsZero() {
		return ErrChannelBlockage
	}
	m, err := message.Publication(message.Stream, parent, message.StreamFrame{Name: name, Text: text})
	if err != nil {
		return err
	}
	if err := c.iopub.Send(m); err != nil {
		log.Printf("kernel: publish stream: %v", err)
		return err
	}
	return nil
}

func (c *connection) PublishDebugEvent(event string, body interface{}) error {
	parent := c.coordinator.LatestDebugRequest()
	m, err := message.Publication(message.DebugEvent, parent, map[string]interface{}{
		"type":  "event",
		"event": event,
		"body":  body,
	})
	if err != nil {
		return err
	}
	if err := c.iopub.Send(m); err != nil {
		log.Printf("kernel: publish debug_event: %v", err)
		return err
	}
	return nil
}
