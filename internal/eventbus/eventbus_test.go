package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliver_SkipsOwnEvents(t *testing.T) {
	var got []string
	eb := New(nil, func(topic string, message []byte) {
		got = append(got, topic+"="+string(message))
	})

	eb.deliver(WSEvent{OriginMachineID: eb.machineID, EventType: eventTypeBroadcast, Topic: "player:a", Message: []byte("x")})
	eb.deliver(WSEvent{OriginMachineID: "other", EventType: eventTypeBroadcast, Topic: "player:a", Message: []byte("y")})
	eb.deliver(WSEvent{OriginMachineID: "other", EventType: "unknown", Topic: "lobby"})

	assert.Equal(t, []string{"player:a=y"}, got)
}

func TestLocalOnlyMode(t *testing.T) {
	eb := New(nil, nil)
	eb.Start()
	eb.PublishBroadcast("lobby", []byte("{}"))
	eb.Stop()

	assert.Len(t, eb.machineID, 16)
}
