package pubsub

// PubSubClient publishes domain events and decodes pushed ones.
type PubSubClient interface {
	SendMessage(topic EventType, data any) error
	ProcessMessage(data []byte, returnValue any) error
}
