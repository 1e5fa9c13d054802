package events

// Subscriber receives events from the bus. The cancel function returned by
// Subscribe stops delivery and closes the channel.
type Subscriber interface {
	Subscribe(topic string) (<-chan Envelope, func(), error)
	Close() error
}
