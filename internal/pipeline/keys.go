package pipeline

// Well-known context keys shared between steps. Steps read only the keys
// they understand and treat absence as "not yet produced".
const (
	// KeyVideoPath is the current best video artifact. Post-processing
	// overwrites it so downstream steps always read the freshest file.
	KeyVideoPath = "videoPath"
	// KeyPromptID is the backend's identifier for the submitted job.
	KeyPromptID = "promptID"
	// KeyPrompt is the effective generation prompt after guards ran.
	KeyPrompt = "prompt"
	// KeyGenerationSeconds is the wall-clock duration of the generation step.
	KeyGenerationSeconds = "generationSeconds"
	// KeyFrameCount is the frame count reported by the done marker.
	KeyFrameCount = "frameCount"
	// KeyScenePaths lists per-scene clips produced in narrative mode.
	KeyScenePaths = "scenePaths"
	// KeyScenePrompts lists the parsed scene prompts in narrative mode.
	KeyScenePrompts = "scenePrompts"
	// KeyScriptTitle is the title parsed from a narrative script.
	KeyScriptTitle = "scriptTitle"
	// KeyEnhanceSkipped records why post-processing did not run.
	KeyEnhanceSkipped = "enhanceSkipped"
	// KeyEnhanceApplied names the post-processing applied to the video.
	KeyEnhanceApplied = "enhanceApplied"
	// KeyQAVerdict is the quality verdict: pass, warn, or fail.
	KeyQAVerdict = "qaVerdict"
	// KeyQAScore is the similarity score from the description scorer.
	KeyQAScore = "qaScore"
	// KeyQASkipped records why the quality pass did not run.
	KeyQASkipped = "qaSkipped"
	// KeyBenchPath is the benchmark stats file location.
	KeyBenchPath = "benchPath"
	// KeyBenchSkipped records why the benchmark did not run.
	KeyBenchSkipped = "benchSkipped"
	// KeyManifestPath is the artifact manifest location.
	KeyManifestPath = "manifestPath"
	// KeyPreflight carries the preflight check results for the summary.
	KeyPreflight = "preflight"
	// KeyWorkflowPath is the resolved workflow template used for the run.
	KeyWorkflowPath = "workflowPath"
	// KeyWorkflowGraph is the prepared graph handed to the generation step.
	KeyWorkflowGraph = "workflowGraph"
	// KeyOutputPrefix is the filename prefix injected into the graph; the
	// done marker and the produced video are resolved from it.
	KeyOutputPrefix = "outputPrefix"
	// KeySeed is the generation seed actually used for the run.
	KeySeed = "seed"
	// KeyTemporalMode is the effective temporal mode after auto resolution.
	KeyTemporalMode = "temporalMode"
	// KeySampleID is the sample prompt identifier for production runs.
	KeySampleID = "sampleID"
)
