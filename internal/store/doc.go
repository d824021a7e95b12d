// Package store persists rendered plans in SQLite.
//
// A plan is one flattened render target: its canonical JSON tree, its
// numbered dump, and any captured-function expansions that were computed
// for it. Plans are content-addressed by ir.PlanID over the target name and
// the tree digest, so saving is idempotent and two targets that render to
// the same tree are still two plans.
//
// All listings are ordered by seq ASC, id ASC. Wall-clock time is stored for
// display only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
