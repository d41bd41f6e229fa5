package notify

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const notificationTopic = "truckradar/notifications"

// MQTTDispatcher publishes notifications as JSON messages on an MQTT
// topic. Downstream bridges (push gateways, dashboards) subscribe there.
type MQTTDispatcher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTDispatcher connects to the broker and returns a dispatcher.
func NewMQTTDispatcher(broker, clientID string) (*MQTTDispatcher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTTDispatcher{client: client, topic: notificationTopic}, nil
}

// ScheduleLocal publishes the notification at QoS 0. Fire-and-forget:
// the broker may drop it and no retry happens.
func (d *MQTTDispatcher) ScheduleLocal(ctx context.Context, n LocalNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	token := d.client.Publish(d.topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (d *MQTTDispatcher) Close() {
	d.client.Disconnect(250)
}
