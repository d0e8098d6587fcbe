package services

// Services holds all service instances
type Services struct {
	Chat *ChatService
}

// NewServices creates all service instances
func NewServices(chat *ChatService) *Services {
	return &Services{Chat: chat}
}
