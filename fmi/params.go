package fmi

import (
	"fmt"
	"strings"
)

type QueryKind string

const (
	KindObservation QueryKind = "observation"
	KindForecast    QueryKind = "forecast"
)

type parameterCode struct {
	name string
	code string
}

// Order matters, it is the order listed in error messages.
var observationCodes = []parameterCode{
	{"temperature", "TA_PT1H_AVG"},
	{"temperature_avg", "TA_PT1H_AVG"},
	{"temperature_max", "TA_PT1H_MAX"},
	{"temperature_min", "TA_PT1H_MIN"},
	{"humidity", "RH_PT1H_AVG"},
	{"relative_humidity", "RH_PT1H_AVG"},
	{"wind_speed", "WS_PT1H_AVG"},
	{"wind_speed_avg", "WS_PT1H_AVG"},
	{"wind_speed_max", "WS_PT1H_MAX"},
	{"wind_speed_min", "WS_PT1H_MIN"},
	{"wind_direction", "WD_PT1H_AVG"},
	{"rain_accumulated", "PRA_PT1H_ACC"},
	{"rain_intensity_max", "PRI_PT1H_MAX"},
	{"air_pressure", "PA_PT1H_AVG"},
}

var forecastCodes = []parameterCode{
	{"air_pressure", "Pressure"},
	{"temperature", "Temperature"},
	{"humidity", "Humidity"},
	{"wind_direction", "WindDirection"},
	{"wind_speed", "WindSpeedMS"},
}

func codesFor(kind QueryKind) ([]parameterCode, error) {
	switch kind {
	case KindObservation:
		return observationCodes, nil
	case KindForecast:
		return forecastCodes, nil
	default:
		return nil, fmt.Errorf("query kind %q not one of expected: %s, %s", kind, KindObservation, KindForecast)
	}
}

// ParameterNames returns the parameter names accepted for the kind of query.
func ParameterNames(kind QueryKind) []string {
	codes, err := codesFor(kind)
	if err != nil {
		return nil
	}
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = c.name
	}
	return names
}

// ParameterCode returns the name FMI uses for the parameter in its data.
func ParameterCode(name string, kind QueryKind) (string, error) {
	codes, err := codesFor(kind)
	if err != nil {
		return "", err
	}
	for _, c := range codes {
		if c.name == name {
			return c.code, nil
		}
	}
	return "", fmt.Errorf("%w %q for %s query, legit values are: %s",
		ErrUnknownParameter, name, kind, strings.Join(ParameterNames(kind), ", "))
}

// resolveParameters translates the requested names, dropping duplicates
// while keeping the request order. A name whose code is already present (such
// as "temperature" and "temperature_avg") becomes its own column all the same.
func resolveParameters(names []string, kind QueryKind) (columns []string, codes []string, err error) {
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("argument 'parameter': %w", ErrMissingParameter)
	}

	seenName := make(map[string]bool, len(names))
	seenCode := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, nil, fmt.Errorf("argument 'parameter': %w", ErrMissingParameter)
		}
		if seenName[n] {
			continue
		}
		code, err := ParameterCode(n, kind)
		if err != nil {
			return nil, nil, err
		}
		seenName[n] = true
		columns = append(columns, n)
		if !seenCode[code] {
			seenCode[code] = true
			codes = append(codes, code)
		}
	}

	return columns, codes, nil
}
