package runner

import "strings"

// Sample is a curated production prompt used for verification runs.
type Sample struct {
	ID     string
	Prompt string
}

// DefaultSampleID is used when a production request names no sample.
const DefaultSampleID = "harbor-dawn"

// Prompts are sized to fit the default token budget with room for a
// caller-appended style suffix.
var samples = []Sample{
	{
		ID: "harbor-dawn",
		Prompt: "A quiet fishing harbor at dawn, low golden light over still water, " +
			"small wooden boats rocking gently, mist lifting off the surface, " +
			"cinematic wide shot with a slow push-in",
	},
	{
		ID: "neon-rain",
		Prompt: "A rain-soaked city street at night lit by neon signs, reflections " +
			"rippling through puddles as a cyclist passes, shallow depth of field, " +
			"moody cinematic color",
	},
	{
		ID: "alpine-drift",
		Prompt: "Snow blowing off a sharp alpine ridge under a clear sky, a lone " +
			"hiker silhouetted on the crest, slow drone orbit, crisp winter light",
	},
}

// SampleByID resolves a curated sample. An empty id selects the default
// sample; an unknown id reports false.
func SampleByID(id string) (Sample, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultSampleID
	}
	for _, sample := range samples {
		if sample.ID == id {
			return sample, true
		}
	}
	return Sample{}, false
}

// Samples lists the curated samples in declaration order.
func Samples() []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}
