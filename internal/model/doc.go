// Package model defines the JSON documents of the paludarium log.
//
// # Overview
//
// Three documents make up the aggregate that is stored locally and mirrored
// to the remote repository:
//
//	data/water.json        → []WaterReading
//	data/dayTemplate.json  → DayTemplate
//	data/settings.json     → Settings (animals and air readings nested inside)
//
// # Wire format
//
// Field names follow the files already present in existing repositories, so a
// water reading looks like:
//
//	{
//	  "id": "k3l9x2",
//	  "ts": "2025-03-14T18:30",
//	  "ph": 6.8, "kh": 4, "gh": 7, "no2": 0, "no3": 10,
//	  "nh4": null, "temp": 24.5, "cond": 350
//	}
//
// and the day template stores times of day as "HH:MM":
//
//	{
//	  "spray":  [{"s": "08:00", "e": "08:05"}],
//	  "fan":    [{"s": "12:00", "e": "13:00"}],
//	  "lights": [{"t": "09:00", "ch1": 40, "ch2": 40}, {"t": "21:00", "ch1": 0}]
//	}
//
// Legacy values (numeric ids, Italian animal enums, numeric liters) are
// accepted on decode and normalised.
//
// # Validation
//
// Constructors such as NewWaterReading, NewInterval, NewAnimal and
// NewAirReading are the entry points for user input. They return a
// *ValidationError and never touch the aggregate. Data decoded from storage is
// not re-validated.
package model
