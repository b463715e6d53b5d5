// Package bench records generation throughput and GPU memory figures
// for a run. It is a soft pipeline step: the numbers come from context
// values that earlier steps merged plus optional ComfyUI system stats,
// and a stats outage downgrades to a warning rather than failing the
// run. Results land in bench.json inside the run directory.
package bench
