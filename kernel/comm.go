package kernel

import "jupyterkernel/message"

// handleCommOpen answers comm_open messages. The core registers no comm
// targets, so any comm_open is for an unrecognized target_name; rather
// than silently swallowing it, the core auto-replies with a comm_close
// on iopub, parented to the comm_open, so a front-end extension that
// opened a comm doesn't wait forever for a reply that will never come.
func (d *Dispatcher) handleCommOpen(msg message.Message) error {
	var content message.CommOpenContent
	if err := msg.Decode(&content); err != nil {
		return err
	}
	closeMsg, err := message.Publication(message.CommClose, msg.Header, message.CommCloseContent{
		CommID: content.CommID,
		Data:   map[string]interface{}{},
	})
	if err != nil {
		return err
	}
	return d.iopub.Send(closeMsg)
}
