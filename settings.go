package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

// keep settings generic strings, type-convert on the fly
type settings struct {
	settings map[string]interface{}
}

func defaultSettings() *settings {
	s := make(map[string]interface{})

	// setting the type here makes the conversion "automatic" later
	s["pinConfig"] = ""
	s["logFile"] = ""
	s["deviceName"] = progName
	s["debounceTime"], _ = time.ParseDuration("20ms")
	s["pinchTime"], _ = time.ParseDuration("1500ms")
	s["pinchPace"], _ = time.ParseDuration("10ms")
	s["repeatDelay"], _ = time.ParseDuration("500ms")
	s["repeatInterval"], _ = time.ParseDuration("100ms")
	s["repeatStep"], _ = time.ParseDuration("5ms")
	s["repeatFloor"], _ = time.ParseDuration("30ms")
	s["i2cBus"] = 1
	s["i2cAddr"] = byte(0x26)
	s["httpListen"] = ""

	return &settings{settings: s}
}

func (s *settings) settingsFromJSON(data []byte) error {
	tmp := defaultSettings()
	for k, initVal := range tmp.settings {
		// ignore missing fields
		if _, _, _, err := jsonparser.Get(data, k); err != nil {
			continue
		}

		var err error
		switch initVal.(type) {
		case uint8:
			var val int64
			val, err = jsonparser.GetInt(data, k)
			if err != nil {
				// try a "0x"-style string
				valString, err2 := jsonparser.GetString(data, k)
				if err2 == nil {
					val, err = strconv.ParseInt(valString, 0, 64)
				}
			}
			if err == nil {
				s.settings[k] = byte(val)
			}
		case int:
			var val int64
			val, err = jsonparser.GetInt(data, k)
			if err == nil {
				s.settings[k] = int(val)
			}
		case bool:
			var bVal bool
			bVal, err = jsonparser.GetBoolean(data, k)
			if err != nil {
				// try true and false
				str, _ := jsonparser.GetString(data, k)
				switch strings.ToLower(str) {
				case "true":
					bVal = true
				case "false":
					bVal = false
				default:
					return err
				}
				err = nil
			}
			s.settings[k] = bVal
		case time.Duration:
			var dur string
			dur, err = jsonparser.GetString(data, k)
			if err == nil {
				var dur2 time.Duration
				dur2, err = time.ParseDuration(dur)
				if err == nil {
					s.settings[k] = dur2
				}
			}
		case string:
			s.settings[k], err = jsonparser.GetString(data, k)
		default:
			err = fmt.Errorf("bad type: %T", initVal)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func initSettings() *settings {
	// defaults
	s := defaultSettings()

	// define our flags first
	settingsFile := flag.String("settings", "/etc/default/gpiokeys.conf", "daemon settings file path")
	configFile := flag.String("config", "", "pin config file path (default /boot/"+progName+".cfg)")

	// parse the flags
	flag.Parse()

	// the settings file is optional; an unattended daemon runs on
	// defaults rather than refusing to start
	data, err := ioutil.ReadFile(*settingsFile)
	if err != nil {
		log.Printf("No settings file '%s', using defaults", *settingsFile)
	} else {
		log.Printf("Reading settings from '%s'", *settingsFile)
		if err := s.settingsFromJSON(data); err != nil {
			log.Fatal(err.Error())
		}
	}

	// pin config path: flag beats settings file beats positional arg
	pinCfg := *configFile
	if pinCfg == "" {
		pinCfg = s.GetString("pinConfig")
	}
	if pinCfg == "" && flag.NArg() > 0 {
		pinCfg = flag.Arg(0)
	}
	s.settings["pinConfig"] = resolveConfigPath(pinCfg)

	return s
}

// resolveConfigPath applies the path convention: no argument means
// /boot/<progname>.cfg, a bare filename lands in /boot.
func resolveConfigPath(path string) string {
	if path == "" {
		return "/boot/" + progName + ".cfg"
	}
	if !strings.Contains(path, "/") {
		return "/boot/" + path
	}
	return path
}

func (s *settings) GetString(key string) string {
	switch v := s.settings[key].(type) {
	case string:
		return v
	default:
		return ""
	}
}

func (s *settings) GetBool(key string) bool {
	switch v := s.settings[key].(type) {
	case bool:
		return v
	default:
		return false
	}
}

func (s *settings) GetDuration(key string) time.Duration {
	switch v := s.settings[key].(type) {
	case time.Duration:
		return v
	default:
		return -1
	}
}

func (s *settings) GetByte(key string) byte {
	switch v := s.settings[key].(type) {
	case byte:
		return v
	case int: // cast to byte
		return byte(v)
	default:
		return 0
	}
}

func (s *settings) GetInt(key string) int {
	switch v := s.settings[key].(type) {
	case int:
		return v
	default:
		return 0
	}
}

func (s *settings) Dump() {
	for k, v := range s.settings {
		log.Printf("%s : %T: %v\n", k, v, v)
	}
}
