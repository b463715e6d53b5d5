package quality

import "slate/internal/textutil"

// lexicalScore approximates prompt alignment when no LLM scorer is
// configured: mean cosine similarity between the prompt fingerprint and
// each scene prompt, with TF-IDF weighting over the scene corpus so
// boilerplate style tokens do not dominate. The second return is false
// when nothing comparable could be fingerprinted.
func lexicalScore(prompt string, observations []string) (float64, bool) {
	promptFP := textutil.NewFingerprint(prompt)
	if promptFP == nil {
		return 0, false
	}

	corpus := textutil.NewCorpus()
	corpus.Add(promptFP)
	scenes := make([]*textutil.Fingerprint, 0, len(observations))
	for _, observation := range observations {
		fp := textutil.NewFingerprint(observation)
		if fp == nil {
			continue
		}
		corpus.Add(fp)
		scenes = append(scenes, fp)
	}
	if len(scenes) == 0 {
		return 0, false
	}

	idf := corpus.IDF()
	weightedPrompt := promptFP.WithIDF(idf)
	var total float64
	for _, scene := range scenes {
		total += textutil.CosineSimilarity(weightedPrompt, scene.WithIDF(idf))
	}
	return total / float64(len(scenes)), true
}
