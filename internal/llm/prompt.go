package llm

// AlignmentScoringPrompt captures the instructions sent to the configured
// LLM when scoring how closely generated frames match the prompt that
// produced them. Update this text centrally so every call stays in sync.
const AlignmentScoringPrompt = `You are a video QA assistant. You receive the text prompt a video was generated from and short descriptions of frames sampled from that video.

Score how well the observed frames match the prompt on a 0.0 to 1.0 scale:

- 1.0: every described element of the prompt is clearly present.
- 0.75 or higher: the main subject and setting match; minor details may differ.
- below 0.5: the subject, setting, or action contradicts the prompt.

Judge content only. Ignore compression artifacts, watermarks, and frame ordering.

You must respond ONLY with a JSON object like: {"score": 0.82, "reason": "short explanation"}

Now score this generation:`

// ScriptExpansionPrompt captures the instructions sent when a narrative run
// starts from a single concept instead of a prepared script file.
const ScriptExpansionPrompt = `You are a storyboard assistant for a text-to-video pipeline. You receive a one-line concept and a maximum scene count.

Expand the concept into an ordered list of scene prompts:

- Each scene is one self-contained sentence a text-to-video model can render.
- Keep a consistent subject and visual style across scenes.
- Never exceed the requested scene count; fewer scenes are fine when the concept is simple.

You must respond ONLY with a JSON object like: {"scenes": ["first scene prompt", "second scene prompt"]}

Now expand this concept:`
