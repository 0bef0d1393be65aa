package mqttclient

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Config carries the broker endpoint and client identity options.
type Config struct {
	BrokerURI string // e.g. "tcp://iot.eclipse.org:1883"
	ClientID  string // if empty, one is generated from AppName
	AppName   string
	User      string
	Password  string
}

// GenerateClientID builds a unique client identity for this process.
func GenerateClientID(appName string) string {
	if appName == "" {
		appName = "weathermq"
	}
	return fmt.Sprintf("%s-%s", appName, uuid.NewString())
}

// newClientOptions translates Config into paho options. The session is
// persistent (CleanSession false) and reconnects automatically, so undelivered
// QoS1 state survives a reconnect within the same process.
func newClientOptions(cfg *Config) *mqtt.ClientOptions {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = GenerateClientID(cfg.AppName)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURI)
	opts.SetClientID(clientID)
	opts.SetCleanSession(false)
	opts.SetAutoReconnect(true)
	if cfg.User != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Password)
	}
	return opts
}

// NewConn connects a plain client to the broker, retrying the initial connect
// with exponential backoff. Blocks until connected or retries are exhausted.
// Used by helper binaries that cannot do anything useful without a broker;
// the telemetry Session uses its own non-blocking connect instead.
func NewConn(cfg *Config, ctx context.Context) (mqtt.Client, error) {
	opts := newClientOptions(cfg)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	maxRetries := 5

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqtt: connect attempt failed: %v", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, uint64(maxRetries-1)))

	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	log.Printf("mqtt: connected to broker at %s", cfg.BrokerURI)

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Println("mqtt: connection closed")
	}()

	return client, nil
}

// CloseConn disconnects the client if it is still connected.
func CloseConn(client mqtt.Client) {
	if client.IsConnected() {
		client.Disconnect(250)
		log.Println("mqtt: connection successfully closed")
	}
}
