package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/terraincognita07/mealplans/internal/services"
)

var ErrUnknownChannel = errors.New("unknown notification channel")

// Router hands each message to the dispatcher registered for its channel.
type Router struct {
	routes   map[string]services.NotificationDispatcher
	fallback services.NotificationDispatcher
}

// NewRouter builds a router. fallback receives messages for unregistered
// channels and may be nil.
func NewRouter(fallback services.NotificationDispatcher) *Router {
	return &Router{
		routes:   make(map[string]services.NotificationDispatcher),
		fallback: fallback,
	}
}

func (router *Router) Register(channel string, dispatcher services.NotificationDispatcher) {
	router.routes[channel] = dispatcher
}

func (router *Router) Send(ctx context.Context, message services.NotificationMessage) error {
	if dispatcher, ok := router.routes[message.Channel]; ok {
		return dispatcher.Send(ctx, message)
	}
	if router.fallback != nil {
		return router.fallback.Send(ctx, message)
	}
	return fmt.Errorf("%w: %q", ErrUnknownChannel, message.Channel)
}
