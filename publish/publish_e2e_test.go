//go:build e2e

package publish

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/angas/fmi-go/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startBroker(t *testing.T) (string, int16) {
	t.Helper()
	ctx := context.Background()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "1883/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	p, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("parse port %q: %v", port.Port(), err)
	}
	return host, int16(p)
}

func TestPublishToBroker(t *testing.T) {
	host, port := startBroker(t)

	p := New(config.AppConfigMqtt{Enabled: true, Host: host, Port: port})
	if err := p.Connect(); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	defer p.Disconnect()

	if err := p.PublishObservations("oulu", testTable()); err != nil {
		t.Fatalf("PublishObservations() unexpected error: %v", err)
	}

	// Retained messages reach a subscriber connecting afterwards
	opts := mqtt.NewClientOptions().AddBroker("tcp://" + host + ":" + strconv.Itoa(int(port))).SetClientID("fmi-go-e2e")
	sub := mqtt.NewClient(opts)
	if token := sub.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}
	defer sub.Disconnect(250)

	received := make(chan mqtt.Message, 4)
	token := sub.Subscribe("fmi/oulu/observation/#", 1, func(_ mqtt.Client, msg mqtt.Message) {
		received <- msg
	})
	if token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}

	got := map[string]string{}
	timeout := time.After(10 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-received:
			got[msg.Topic()] = string(msg.Payload())
		case <-timeout:
			t.Fatalf("timed out waiting for retained messages, got %v", got)
		}
	}

	if got["fmi/oulu/observation/temperature"] != `{"time":"2022-09-01T12:00:00Z","value":13.1}` {
		t.Errorf("unexpected temperature payload %s", got["fmi/oulu/observation/temperature"])
	}
}
