package occupancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStationIDFromTopic(t *testing.T) {
	assert.Equal(t, "st_1", stationIDFromTopic("stations/st_1/occupancy"))
	assert.Equal(t, "", stationIDFromTopic("stations/st_1/status"))
	assert.Equal(t, "", stationIDFromTopic("occupancy"))
	assert.Equal(t, "", stationIDFromTopic("a/stations/st_1/occupancy"))
}

func TestNewMQTTSource_Defaults(t *testing.T) {
	_, err := NewMQTTSource(MQTTConfig{})
	assert.Error(t, err)

	src, err := NewMQTTSource(MQTTConfig{BrokerURL: "tcp://localhost:1883"})
	assert.NoError(t, err)
	assert.Equal(t, DefaultMQTTTopic, src.cfg.Topic)
	assert.Equal(t, byte(1), src.cfg.QoS)
	assert.Contains(t, src.cfg.ClientID, "chargeroute-worker-")
	assert.Equal(t, "mqtt", src.Name())
}
