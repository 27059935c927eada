package inverter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/simonvetter/modbus"
)

// SolarEdge storage control registers.
const (
	regStorageControlMode = 0xE004
	regRemoteCommandMode  = 0xE00D
)

const (
	controlModeSelfConsumption = 1 // Maximize self-consumption
	controlModeRemote          = 4 // Remote control
	commandModeIdle            = 0 // Neither charge nor discharge
)

const (
	connectTimeout = 2 * time.Second
	writeRetries   = 3
)

// Mode is the home battery behaviour this program can ask for.
type Mode int

const (
	// ModeAutomatic restores the behaviour the inverter had before this
	// program touched it.
	ModeAutomatic Mode = iota
	// ModeIdle parks the battery: it neither charges nor discharges, so
	// the vehicle does not drain it while charging.
	ModeIdle
)

func (m Mode) String() string {
	if m == ModeIdle {
		return "idle"
	}
	return "automatic"
}

// Inverter toggles the home battery mode over Modbus/TCP. Every call
// opens its own connection and closes it again, so a killed run never
// leaves a connection dangling.
type Inverter struct {
	logger   *slog.Logger
	url      string
	unitId   uint8
	baseline [2]uint16 // control mode and command mode to restore
}

func New(logger *slog.Logger, host string, port int, unitId int) *Inverter {
	return &Inverter{
		logger:   logger,
		url:      fmt.Sprintf("tcp://%s:%d", host, port),
		unitId:   uint8(unitId),
		baseline: [2]uint16{controlModeSelfConsumption, commandModeIdle},
	}
}

// withClient runs fn against a freshly opened connection and always
// closes it, even on failure.
func (i *Inverter) withClient(fn func(*modbus.ModbusClient) error) error {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     i.url,
		Timeout: connectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create modbus client: %w", err)
	}
	if err := client.SetUnitId(i.unitId); err != nil {
		return fmt.Errorf("failed to set modbus unit id: %w", err)
	}
	if err := client.Open(); err != nil {
		return fmt.Errorf("failed to connect to inverter: %w", err)
	}
	defer client.Close()

	return fn(client)
}

// CaptureBaseline reads and remembers the current storage modes so a
// later SetMode(ModeAutomatic) can restore them.
func (i *Inverter) CaptureBaseline() error {
	return i.withClient(func(client *modbus.ModbusClient) error {
		control, err := client.ReadRegister(regStorageControlMode, modbus.HOLDING_REGISTER)
		if err != nil {
			return fmt.Errorf("failed to read storage control mode: %w", err)
		}
		command, err := client.ReadRegister(regRemoteCommandMode, modbus.HOLDING_REGISTER)
		if err != nil {
			return fmt.Errorf("failed to read remote command mode: %w", err)
		}
		i.baseline = [2]uint16{control, command}
		i.logger.Info("inverter baseline captured",
			slog.Int("controlMode", int(control)),
			slog.Int("commandMode", int(command)))
		return nil
	})
}

// SetMode writes the battery mode registers, retrying transient bus
// failures with exponential backoff. It is not safety critical: a
// failure degrades to normal inverter behaviour.
func (i *Inverter) SetMode(mode Mode) error {
	i.logger.Debug("setting inverter mode", slog.String("mode", mode.String()))

	op := func() error {
		return i.withClient(func(client *modbus.ModbusClient) error {
			if mode == ModeIdle {
				control, err := client.ReadRegister(regStorageControlMode, modbus.HOLDING_REGISTER)
				if err != nil {
					return fmt.Errorf("failed to read storage control mode: %w", err)
				}
				if control != controlModeRemote {
					i.logger.Info("inverter not in remote control mode, switching")
					if err := client.WriteRegister(regStorageControlMode, controlModeRemote); err != nil {
						return fmt.Errorf("failed to write storage control mode: %w", err)
					}
				}
				if err := client.WriteRegister(regRemoteCommandMode, commandModeIdle); err != nil {
					return fmt.Errorf("failed to write remote command mode: %w", err)
				}
				return nil
			}

			if err := client.WriteRegister(regStorageControlMode, i.baseline[0]); err != nil {
				return fmt.Errorf("failed to restore storage control mode: %w", err)
			}
			if err := client.WriteRegister(regRemoteCommandMode, i.baseline[1]); err != nil {
				return fmt.Errorf("failed to restore remote command mode: %w", err)
			}
			return nil
		})
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), writeRetries)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("inverter mode write failed after retries: %w", err)
	}
	return nil
}
