// Package convert holds the scalar unit conversions and engineering models
// applied to vessel sensor series. Every function maps one value (or a pair
// of aligned values) and is meant to be passed to series.Transform or
// series.Combine together with the output unit constant.
package convert

import "math"

// Unit names used to tag series after a conversion.
const (
	Watt           = "W"
	Kilowatt       = "kW"
	Percent        = "%"
	Fraction       = ""
	LitersPerHour  = "L/h"
	KgPerHour      = "kg/h"
	KgPerSecond    = "kg/s"
	KmPerHour      = "km/h"
	MetersPerSec   = "m/s"
	Joule          = "J"
	KilowattHour   = "kWh"
	Kilogram       = "kg"
	Pascal         = "Pa"
	GramsPerKWh    = "g/kWh"
	KWPerLiterHour = "kW/(L/h)"
)

// Installed plant.
const (
	RatedThrusterPower = 500e3 // W per azimuth thruster
	RatedEnginePower   = 450e3 // W per generator set
	EngineCount        = 2     // engines in service
)

const (
	dieselDensity   = 820   // kg/m³
	litersToCubic   = 0.001 // m³ per liter
	secondsPerHour  = 3600
	joulesPerKWh    = 3.6e6
	displacedVolume = 0.001 // m³ per cylinder
	cylinderCount   = 8
	revsPerStroke   = 1

	// kW per L/h to fraction, calibrated for the logged diesel.
	thermalCalibration = 36e3 / (dieselDensity * 454)
)

// Power-train stages between the generator shaft and the thruster motor.
const (
	GeneratorEfficiency     = 0.96
	ConverterEfficiency     = 0.97
	SwitchboardEfficiency   = 0.99
	PropulsionEfficiency    = 0.97
	powerTrainEfficiencyAll = GeneratorEfficiency * ConverterEfficiency * SwitchboardEfficiency * PropulsionEfficiency
)

// Denominator floors for the ratio models.
const (
	MinFuelFlowLPH = 1.0
	MinPowerKW     = 1.0
)

// ThrusterLoadToWatts converts a thruster load in percent of rated power (0-100)
// to watts.
func ThrusterLoadToWatts(percent float64) float64 {
	return percent / 100 * RatedThrusterPower
}

// EngineLoadKWToWatts converts an engine load logged in kW to watts.
func EngineLoadKWToWatts(kw float64) float64 {
	return kw * 1e3
}

// EnginePowerToPercentTotal expresses a combined engine power in watts as a
// percentage of the installed capacity of the engines in service.
func EnginePowerToPercentTotal(watts float64) float64 {
	return watts / (EngineCount * RatedEnginePower) * 100
}

// EmpiricalEngineEfficiency is the fitted efficiency curve of the generator
// sets. Input is the load in percent (0-100), output is efficiency in percent.
func EmpiricalEngineEfficiency(loadPercent float64) float64 {
	return -0.0024*loadPercent*loadPercent + 0.402*loadPercent + 27.4382
}

// PowerTrainEfficiencyToThruster carries an engine efficiency (percent)
// through generator, frequency converter, switchboard and propulsion motor.
func PowerTrainEfficiencyToThruster(efficiency float64) float64 {
	return efficiency * powerTrainEfficiencyAll
}

// FuelFlowLPHToKgPerHour converts a diesel volume flow to mass flow.
func FuelFlowLPHToKgPerHour(lph float64) float64 {
	return lph * litersToCubic * dieselDensity
}

// FuelFlowLPHToKgPerSecond converts a diesel volume flow to mass flow per second.
func FuelFlowLPHToKgPerSecond(lph float64) float64 {
	return FuelFlowLPHToKgPerHour(lph) / secondsPerHour
}

// KmPerHourToMetersPerSecond converts km/h to m/s.
func KmPerHourToMetersPerSecond(kmh float64) float64 {
	return kmh / 3.6
}

// PercentToFraction converts a percentage to a fraction of one.
func PercentToFraction(percent float64) float64 {
	return percent / 100
}

// EngineThermalEfficiency converts a ratio of engine power (kW) to fuel flow
// (L/h) into thermal efficiency in percent.
func EngineThermalEfficiency(kwPerLPH float64) float64 {
	return kwPerLPH * thermalCalibration * 100
}

// ThermalEfficiency computes thermal efficiency from aligned engine power and
// fuel flow samples. Flow is floored at MinFuelFlowLPH and the result is
// clamped to [0, 100].
func ThermalEfficiency(powerKW, flowLPH float64) float64 {
	eff := EngineThermalEfficiency(powerKW / math.Max(flowLPH, MinFuelFlowLPH))
	return math.Min(math.Max(eff, 0), 100)
}

// SpecificFuelConsumption returns grams of fuel per kWh delivered.
func SpecificFuelConsumption(kgPerHour, powerKW float64) float64 {
	return kgPerHour * 1e3 / math.Max(powerKW, MinPowerKW)
}

// PowerEfficiency is the ratio of propulsion power to engine load, both in W.
func PowerEfficiency(propulsionW, loadW float64) float64 {
	return propulsionW / math.Max(loadW, MinPowerKW*1e3)
}

// BMEP estimates brake mean effective pressure (Pa) from shaft power (W).
func BMEP(powerW float64) float64 {
	return powerW * revsPerStroke / (displacedVolume * cylinderCount)
}

// JoulesToKWh converts energy in joules to kilowatt hours.
func JoulesToKWh(j float64) float64 {
	return j / joulesPerKWh
}
