// Package scan finds registry packages that depend on a target library.
//
// A run has three parts connected by a bounded [Queue]:
//
//	Searcher ──► Ingestor ──► Queue (cap 1000) ──► N × Scanner ──► Reporter
//
// The [Ingestor] pages through search results and blocks on a full queue, so
// page fetching is throttled to the speed of the scanners. Each [Scanner]
// worker takes one result at a time, downloads the package archive, opens
// every *.deps.json entry and checks whether a library key starts with the
// target prefix (case-insensitive).
//
// # Stop modes
//
// The [Coordinator] decides what a match means for the rest of the run:
//
//   - [StopFirst]: cancel everything; the run ends with the first match.
//   - [StopWorker]: only the matching worker returns. Ingestion ends early
//     once no worker is left to drain the queue.
//   - [StopNone]: keep going and report every match.
//
// # Errors
//
// A failure aborts only the task it happens in. [Coordinator.Run] waits for
// every task and returns the first error together with the partial
// [Result].
package scan
