// Package notify defines the fire-and-forget notification collaborator
// the engine pushes live announcements and geofence alerts through.
package notify

import "context"

// LocalNotification is the payload handed to the dispatcher.
type LocalNotification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Dispatcher delivers notifications. Delivery is best-effort; a
// dispatch failure never affects the state change that triggered it.
type Dispatcher interface {
	ScheduleLocal(ctx context.Context, n LocalNotification) error
}

// NopDispatcher drops every notification. Used on targets without a
// delivery channel.
type NopDispatcher struct{}

func (NopDispatcher) ScheduleLocal(ctx context.Context, n LocalNotification) error {
	return nil
}
