package control

import "testing"

func TestStateCache(t *testing.T) {
	e := Entities{
		Battery:        "sensor.battery",
		ChargeCurrent:  "number.current",
		PowerUsage:     "sensor.power",
		CableConnected: "binary_sensor.cable",
		ChargerSwitch:  "switch.charger",
	}
	c := NewStateCache(e)
	if _, ok := c.CurrentSetpoint(); ok {
		t.Fatal("empty cache reported a current")
	}
	if c.CableConnected() {
		t.Fatal("empty cache reported a cable")
	}
	if _, ok := c.BatteryLevel(); ok {
		t.Fatal("empty cache reported a battery level")
	}

	c.Set("number.current", "6")
	c.Set("binary_sensor.cable", "on")
	c.Set("sensor.battery", "55.5")
	if v, ok := c.CurrentSetpoint(); !ok || v != 6 {
		t.Fatalf("current = %v %t", v, ok)
	}
	if !c.CableConnected() {
		t.Fatal("cable not connected")
	}
	if v, ok := c.BatteryLevel(); !ok || v != 55.5 {
		t.Fatalf("battery = %v %t", v, ok)
	}

	c.Set("binary_sensor.cable", "unavailable")
	if c.CableConnected() {
		t.Fatal("unavailable cable reported connected")
	}
	c.Set("number.current", "unknown")
	if _, ok := c.CurrentSetpoint(); ok {
		t.Fatal("unknown current reported")
	}
}
