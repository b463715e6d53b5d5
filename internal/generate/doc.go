// Package generate implements the text-to-video generation step.
//
// The generator guards the prompt against the configured token budget,
// then drives one of two backends: ComfyUI (submit the prepared graph,
// poll for the done marker the producer writes next to the artifact)
// or the FastVideo sidecar (one synchronous generate call). Production
// runs render a single clip; narrative runs loop the parsed scenes and
// collect one clip per scene for the stitch step.
//
// Backend failures arrive pre-classified from the clients; the only
// category minted here is api_timeout when the done marker never
// appears within the configured deadline.
package generate
