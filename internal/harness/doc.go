// Package harness runs YAML conformance scenarios against the tool layer.
//
// A scenario freezes the clock, seeds an in-process fake store, then calls
// tools through the same registry, client and formula compiler the server
// uses. Nothing is stubbed above HTTP: formulas are compiled, sent as
// filterByFormula, parsed back and evaluated by the fake store, and every
// call is written to an in-memory audit log.
//
// Scenario format:
//
//	name: tasks_for_today
//	description: Today's tasks for one worker
//	today: "2026-10-16"
//	seed_file: ../seeds/farm.yaml
//	flow:
//	  - call: tasks_for_today
//	    args: {worker: Sato}
//	    expect:
//	      case: success
//	      contains: ["Tasks for Sato (1 record):"]
//	assertions:
//	  - type: trace_count
//	    tool: tasks_for_today
//	    count: 1
//
// Expect cases are "success" or an error kind such as EMPTY_QUERY or
// REMOTE_API_ERROR. Assertions compare displayed field values, so a list
// field matches on its first element.
//
// Transcripts of each run can be compared against golden files with
// RunWithGolden, or written and compared by the CLI test command.
package harness
