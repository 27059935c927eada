package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type AppConfigCalendar struct {
	// Name of the calendar holding the trips for the vehicle(s)
	Name string
	// Bearer token for the calendar API
	AccessToken string `mapstructure:"access_token"`
}

type AppConfigInverter struct {
	Host   string
	Port   *int `mapstructure:"port"`
	UnitId *int `mapstructure:"unit_id"`
}

func (i AppConfigInverter) GetPort() int {
	if i.Port == nil {
		return 1502
	}
	return *i.Port
}

func (i AppConfigInverter) GetUnitId() int {
	if i.UnitId == nil {
		return 1
	}
	return *i.UnitId
}

// Enabled reports whether home battery control is configured at all.
func (i AppConfigInverter) Enabled() bool {
	return i.Host != ""
}

type AppConfigDatabase struct {
	Host     string
	Port     *int `mapstructure:"port"`
	Name     string
	User     string
	Password string
}

func (d AppConfigDatabase) GetPort() int {
	if d.Port == nil {
		return 5432
	}
	return *d.Port
}

func (d AppConfigDatabase) Dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		d.User, d.Password, d.Host, d.GetPort(), d.Name)
}

type AppConfigTessie struct {
	AccessToken string `mapstructure:"access_token"`
}

type AppConfigDirections struct {
	MapsApiKey string `mapstructure:"maps_api_key"`
}

type AppConfigPlanner struct {
	// How many hours ahead a cheap price window may start for the planner
	// to withhold charging at a worse price now
	LookAheadHours *int `mapstructure:"look_ahead_hours"`
}

func (p AppConfigPlanner) GetLookAheadHours() int {
	if p.LookAheadHours == nil {
		return 5
	}
	return *p.LookAheadHours
}

type AppConfigScheduler struct {
	// Cron expression for daemon mode
	RunAt *string `mapstructure:"run_at"`
}

func (s AppConfigScheduler) GetRunAt() string {
	if s.RunAt == nil {
		return "*/10 * * * *"
	}
	return *s.RunAt
}

type AppConfigVehicle struct {
	Vin string
	// Calendar holding this vehicle's trips, overrides the global one
	Calendar        string
	HomeLat         float64 `mapstructure:"home_lat"`
	HomeLon         float64 `mapstructure:"home_lon"`
	KwhPerKm        float64 `mapstructure:"kwh_per_km"`        // Energy use per driven km
	BatteryCapacity float64 `mapstructure:"battery_capacity"`  // Battery capacity in kWh
	ChargeReturning *int    `mapstructure:"charge_returning"`  // Percent to always have left after a trip
	ChargeMinimum   *int    `mapstructure:"charge_minimum"`    // Percent to fill always, even at expensive prices
	ChargeCheap     int     `mapstructure:"charge_cheap"`      // Percent to fill with cheap energy
	ChargeDefault   int     `mapstructure:"charge_default"`    // Percent set in the app for this program to take over
	ChargeVeryCheap int     `mapstructure:"charge_very_cheap"` // Percent to fill with very cheap energy
	ChargePhases    int     `mapstructure:"charge_phases"`
	ChargeAmpsMax   int     `mapstructure:"charge_amps_max"`
}

// GetChargeReturning defaults to 10. An explicit 0 disables the
// returning reserve.
func (v AppConfigVehicle) GetChargeReturning() int {
	if v.ChargeReturning == nil {
		return 10
	}
	return *v.ChargeReturning
}

// GetChargeMinimum defaults to 32. An explicit 0 disables the safety
// floor.
func (v AppConfigVehicle) GetChargeMinimum() int {
	if v.ChargeMinimum == nil {
		return 32
	}
	return *v.ChargeMinimum
}

// CalendarName is the calendar holding this vehicle's trips, falling
// back to the globally configured one.
func (v AppConfigVehicle) CalendarName(fallback string) string {
	if v.Calendar != "" {
		return v.Calendar
	}
	return fallback
}

const chargeVoltage = 0.230 // Average charging voltage in kV

// ChargePowerKw is the charge rate in kW given phases and max amps.
func (v AppConfigVehicle) ChargePowerKw() float64 {
	return float64(v.ChargeAmpsMax) * float64(v.ChargePhases) * chargeVoltage
}

// IsConfiguredTier reports whether limit equals one of the configured
// charge-limit tiers. Anything else is treated as a user override.
func (v AppConfigVehicle) IsConfiguredTier(limit int) bool {
	return limit == v.GetChargeMinimum() ||
		limit == v.ChargeDefault ||
		limit == v.ChargeCheap ||
		limit == v.ChargeVeryCheap
}

func (v AppConfigVehicle) validate(name string) error {
	if v.Vin == "" {
		return fmt.Errorf("vehicle %s: vin is required", name)
	}
	if v.GetChargeMinimum() >= v.ChargeDefault {
		return fmt.Errorf("vehicle %s: charge_minimum (%d) must be below charge_default (%d)", name, v.GetChargeMinimum(), v.ChargeDefault)
	}
	if v.ChargeDefault > v.ChargeCheap {
		return fmt.Errorf("vehicle %s: charge_default (%d) must not exceed charge_cheap (%d)", name, v.ChargeDefault, v.ChargeCheap)
	}
	if v.ChargeCheap >= v.ChargeVeryCheap {
		return fmt.Errorf("vehicle %s: charge_cheap (%d) must be below charge_very_cheap (%d)", name, v.ChargeCheap, v.ChargeVeryCheap)
	}
	if v.BatteryCapacity <= 0 {
		return fmt.Errorf("vehicle %s: battery_capacity must be positive", name)
	}
	if v.ChargePhases <= 0 || v.ChargeAmpsMax <= 0 {
		return fmt.Errorf("vehicle %s: charge_phases and charge_amps_max must be positive", name)
	}
	return nil
}

type AppConfig struct {
	Calendar   AppConfigCalendar
	Inverter   AppConfigInverter
	Database   AppConfigDatabase
	Tessie     AppConfigTessie
	Directions AppConfigDirections
	Planner    AppConfigPlanner
	Scheduler  AppConfigScheduler
	Vehicles   map[string]AppConfigVehicle
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("ini")
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("ini")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	c.applyDefaults()

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *AppConfig) applyDefaults() {
	for name, v := range c.Vehicles {
		if v.KwhPerKm == 0 {
			v.KwhPerKm = 0.250
		}
		if v.BatteryCapacity == 0 {
			v.BatteryCapacity = 100
		}
		if v.ChargeCheap == 0 {
			v.ChargeCheap = 49
		}
		if v.ChargeDefault == 0 {
			v.ChargeDefault = 50
		}
		if v.ChargeVeryCheap == 0 {
			v.ChargeVeryCheap = 98
		}
		if v.ChargePhases == 0 {
			v.ChargePhases = 3
		}
		if v.ChargeAmpsMax == 0 {
			v.ChargeAmpsMax = 13
		}
		c.Vehicles[name] = v
	}
}

func (c *AppConfig) validate() error {
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("no vehicles configured")
	}
	if c.Database.Host == "" || c.Database.User == "" {
		return fmt.Errorf("database host and user are required")
	}
	for name, v := range c.Vehicles {
		if err := v.validate(name); err != nil {
			return err
		}
	}
	return nil
}
