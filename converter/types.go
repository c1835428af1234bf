package converter

// SampleTypeConfig describes the sample types of converted profiles to Pyroscope
var SampleTypeConfig = map[string]map[string]interface{}{
	"wall": {
		"units":        "nanoseconds",
		"display-name": "wall-time",
		"aggregation":  "sum",
		"cumulative":   false,
		"sampled":      false,
	},
	"calls": {
		"units":        "count",
		"display-name": "scope-calls",
		"aggregation":  "sum",
		"cumulative":   false,
		"sampled":      false,
	},
}
