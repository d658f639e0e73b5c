// Package registry holds the task table of the scheduling engine.
//
// The table associates a unique task id, a recurrence pattern, and a unit of
// work, and is shared between two concurrent actors:
//   - administration calls that register/unregister/update tasks at any time
//   - the tick loop that scans every entry and hands matches to the executor
//
// One reader/writer lock guards the whole table. Writers are exclusive; the
// per-tick scan holds the read lock for a full pass so it always sees one
// consistent snapshot.
package registry
