package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/robotalks/openbci.go/pkg/sink/mqtt"
	"github.com/robotalks/openbci.go/pkg/sink/text"
)

var (
	mqttURL = "mqtt://localhost:1883/openbci/"
	device  = "+"
)

func init() {
	if val := os.Getenv("OPENBCI_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&device, "device-id", device, "Recorder id to watch, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(10 * time.Second); err != nil {
		log.Fatalln(err)
	}

	q.Sub(mqtt.SamplesTopic(device), mqtt.Handler(func(topic string, payload []byte) {
		m, err := mqtt.DecodeMessage(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s #%d] %s", topic, m.Session, m.Seq, text.FormatLine(m.Sample))
	}))
	<-(chan struct{})(nil)
}
