// Package weather parses the weather files that accompany a building energy
// simulation and aggregates them into a WeatherFile.
//
// # File Set
//
// A location is described by three files that share a basename:
//
//	USA_IL_Chicago-OHare.Intl.AP.725300_TMY3.epw   hourly weather data
//	USA_IL_Chicago-OHare.Intl.AP.725300_TMY3.ddy   design days (IDF syntax)
//	USA_IL_Chicago-OHare.Intl.AP.725300_TMY3.stat  climate summary annex
//
// Load refuses a set with a missing member (ErrIncompleteSet).
//
// # STAT Conventions
//
// STAT files are fixed-format text written in ISO-8859-1 (the degree sign is
// byte 0xB0). Fields are pulled out one regular expression at a time:
//
//	{N 41° 58'} {W  87° 54'} {GMT -6.0 Hours}
//	  degrees + minutes/60, negated for S and W
//	Elevation --   201m above sea level
//	  negated for "below sea level"
//	- 3463 annual (standard) heating degree-days (18.3°C baseline)
//	- 1787 annual (standard) heating degree-days (10°C baseline)
//	  likewise for cooling; the 18.3°C figures are reported as HDD18/CDD18
//	Heating	1	-20	-16.6	...   coldest month, DB996, DB990, ...
//	Cooling	7	10.5	33.3	...   hottest month, DBR, DB004, WB_DB004, ...
//	Extremes	11.1	9.9	...      WS010, WS025, WS050, WBmax, DBmin_mean, DBmax_mean, ...
//	Daily Avg	-5.9	-3.8	...     12 monthly means, first table is dry bulb
//	Climate type "5A" (ASHRAE Standard 196-2006 Climate Zone)
//
// Every extraction is attempted independently. A missing or malformed field is
// logged, recorded in StatFile.Warnings and left empty; parsing never stops
// early. A STAT file is valid only when the location block matched and all
// four degree-day figures are numeric.
//
// # EPW Conventions
//
// Eight header lines (LOCATION, DESIGN CONDITIONS, TYPICAL/EXTREME PERIODS,
// GROUND TEMPERATURES, HOLIDAYS/DAYLIGHT SAVINGS, COMMENTS 1, COMMENTS 2,
// DATA PERIODS) are followed by one comma-separated record per hour. Columns
// used here (zero based): 1 month, 2 day, 3 hour (1-24), 6 dry bulb °C,
// 7 dew point °C, 8 relative humidity %, 9 pressure Pa, 13 global horizontal,
// 14 direct normal, 15 diffuse horizontal Wh/m2, 20 wind direction deg,
// 21 wind speed m/s.
package weather
