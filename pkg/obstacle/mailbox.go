package obstacle

// Mailbox is a bounded, latest-wins queue of alert sets.
//
// The vision worker publishes a batch only when its alert set changes, so the
// reader keeps the last batch it saw until a newer one arrives.
type Mailbox struct {
	ch chan AlertSet

	// reader-owned
	latest AlertSet
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan AlertSet, 1)}
}

// Publish enqueues alerts, discarding any batch the reader has not taken yet.
// It never blocks.
func (m *Mailbox) Publish(alerts AlertSet) {
	batch := alerts.Normalize()
	for {
		select {
		case m.ch <- batch:
			return
		default:
		}
		// Superseded: drop the unread batch and retry.
		select {
		case <-m.ch:
		default:
		}
	}
}

// Drain takes every pending batch and returns the newest alert set.
// Must only be called from the single reader.
func (m *Mailbox) Drain() AlertSet {
	for {
		select {
		case batch := <-m.ch:
			m.latest = batch
		default:
			return m.latest
		}
	}
}

// Blocked implements Monitor.
func (m *Mailbox) Blocked() bool {
	return m.Drain().Blocking()
}

var (
	_ Monitor   = (*Mailbox)(nil)
	_ Publisher = (*Mailbox)(nil)
)

// Latest returns the alert set seen by the last Drain without draining.
// Must only be called from the single reader.
func (m *Mailbox) Latest() AlertSet {
	return m.latest
}
