package config

import "flag"

// Flags binds command line flags. Only flags set explicitly override
// the file.
type Flags struct {
	fs      *flag.FlagSet
	path    string
	values  Config
	bimodal string
}

// SetupFlags sets up command line flags.
func SetupFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, path: defaultConfigFile, values: *NewConfig()}
	v := &f.values
	fs.StringVar(&f.path, "config", f.path, "YAML config file.")
	fs.StringVar(&v.Device, "device", v.Device, "Serial port of the board dongle.")
	fs.StringVar(&v.DeviceID, "device-id", v.DeviceID, "Recorder id, defaults to the machine id.")
	fs.IntVar(&v.Serial.BaudRate, "baud", v.Serial.BaudRate, "Serial baud rate.")
	fs.IntVar(&v.Session.DurationSeconds, "duration", v.Session.DurationSeconds, "Recording duration in seconds, 0 to record until interrupted.")
	fs.IntVar(&v.Session.SampleRateHz, "rate", v.Session.SampleRateHz, "Sample rate of the board in Hz.")
	fs.StringVar(&f.bimodal, "bimodal", FormatChannels(v.Session.BimodalChannels), "Comma separated bimodal channels.")
	fs.DurationVar(&v.Session.AckTimeout, "ack-timeout", v.Session.AckTimeout, "Command acknowledgement timeout, 0 to wait forever.")
	fs.BoolVar(&v.Session.StrictFooter, "strict-footer", v.Session.StrictFooter, "Drop frames without the footer marker.")
	fs.BoolVar(&v.Session.QueryRegisters, "query-registers", v.Session.QueryRegisters, "Log board registers before streaming.")
	fs.StringVar(&v.Output.File, "out", v.Output.File, "Text output file, - for stdout, empty to disable.")
	fs.StringVar(&v.Output.SQLite, "sqlite", v.Output.SQLite, "SQLite database file.")
	fs.StringVar(&v.Output.MQTTURL, "mqtt", v.Output.MQTTURL, "MQTT broker URL, e.g. mqtt://localhost:1883/openbci/.")
	fs.StringVar(&v.Output.WebsocketAddr, "ws", v.Output.WebsocketAddr, "Listen address for websocket streaming.")
	return f
}

// Resolve builds the Config: defaults, then the config file, then
// explicitly set flags.
func (f *Flags) Resolve() (*Config, error) {
	conf := NewConfig()
	if f.path != "" {
		if err := conf.LoadFile(f.path); err != nil {
			return nil, err
		}
	}
	var err error
	v := &f.values
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "device":
			conf.Device = v.Device
		case "device-id":
			conf.DeviceID = v.DeviceID
		case "baud":
			conf.Serial.BaudRate = v.Serial.BaudRate
		case "duration":
			conf.Session.DurationSeconds = v.Session.DurationSeconds
		case "rate":
			conf.Session.SampleRateHz = v.Session.SampleRateHz
		case "bimodal":
			var channels []int
			if channels, err = ParseChannels(f.bimodal); err == nil {
				conf.Session.BimodalChannels = channels
			}
		case "ack-timeout":
			conf.Session.AckTimeout = v.Session.AckTimeout
		case "strict-footer":
			conf.Session.StrictFooter = v.Session.StrictFooter
		case "query-registers":
			conf.Session.QueryRegisters = v.Session.QueryRegisters
		case "out":
			conf.Output.File = v.Output.File
		case "sqlite":
			conf.Output.SQLite = v.Output.SQLite
		case "mqtt":
			conf.Output.MQTTURL = v.Output.MQTTURL
		case "ws":
			conf.Output.WebsocketAddr = v.Output.WebsocketAddr
		}
	})
	if err != nil {
		return nil, err
	}
	if err = conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
