package ports

// Sender writes one outbound envelope to the realtime channel
type Sender interface {
	Send(envelope any) error
}

// FrameHandler receives inbound frames in delivery order
type FrameHandler func(raw []byte)
