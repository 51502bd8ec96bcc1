// Package planner turns requirement statuses into a plan.
//
// The planner is the pack-wide reduction over the per-requirement state
// machines. It is deterministic: the same statuses always produce the same
// plan, byte for byte.
//
// Key responsibilities:
//   - Collect the canonical remediation of every non-met requirement into a
//     deduplicated, sorted action list
//   - Classify the pack as complete, incomplete, or stuck
//   - Resolve the single next action handed to the operator or editor
//   - Load and save enrich/plan.out.json
package planner
