package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	Vault struct {
		Passphrase          string `json:"passphrase"`
		KillSwitchThreshold int    `json:"kill_switch_threshold"`
	} `json:"vault,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Sync struct {
		Endpoint       string   `json:"endpoint"`
		RequestTimeout Duration `json:"request_timeout"`
		MaxAttempts    uint32   `json:"max_attempts"`
		BackoffBase    Duration `json:"backoff_base"`
		BackoffCap     Duration `json:"backoff_cap"`
		OnlineCooldown Duration `json:"online_cooldown"`
	} `json:"sync,omitempty"`

	Workers struct {
		DrainInterval Duration `json:"drain_interval"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Vault: Vault{
			Passphrase:          jsonCfg.Vault.Passphrase,
			KillSwitchThreshold: jsonCfg.Vault.KillSwitchThreshold,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Sync: Sync{
			Endpoint:       jsonCfg.Sync.Endpoint,
			RequestTimeout: time.Duration(jsonCfg.Sync.RequestTimeout),
			MaxAttempts:    jsonCfg.Sync.MaxAttempts,
			BackoffBase:    time.Duration(jsonCfg.Sync.BackoffBase),
			BackoffCap:     time.Duration(jsonCfg.Sync.BackoffCap),
			OnlineCooldown: time.Duration(jsonCfg.Sync.OnlineCooldown),
		},
		Workers: Workers{
			DrainInterval: time.Duration(jsonCfg.Workers.DrainInterval),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
