package block

// Message reports a side effect of an edit that the document must act on.
type Message interface {
	isMessage()
}

// ListChanged asks for every item of a list to be renumbered.
type ListChanged struct {
	ListID string
}

// Redraw reports that a block's display changed without an edit.
type Redraw struct {
	Key string
}

func (ListChanged) isMessage() {}
func (Redraw) isMessage()      {}

// Mutation collects the messages produced while applying one edit.
type Mutation struct {
	Messages []Message
}

// Push records msg. A nil Mutation discards it.
func (m *Mutation) Push(msg Message) {
	if m == nil {
		return
	}
	for _, have := range m.Messages {
		if have == msg {
			return
		}
	}
	m.Messages = append(m.Messages, msg)
}

// ListIDs returns the lists that need renumbering, in the order reported.
func (m *Mutation) ListIDs() []string {
	if m == nil {
		return nil
	}
	var ids []string
	for _, msg := range m.Messages {
		if lc, ok := msg.(ListChanged); ok {
			ids = append(ids, lc.ListID)
		}
	}
	return ids
}
