// Package history keeps the execution journal: one row per program run and
// one row per dispatch, stored in SQLite.
//
// Journal adapts a Repository to iot.Observer so it can be attached to the
// coordinator alongside the other event sinks:
//
//	repo := history.NewSQLiteRepository(db.DB)
//	journal := history.NewJournal(repo)
//	svc := iot.NewService(iot.Options{Observer: iot.Observers{journal, hub}})
//
// Writes are synchronous on the dispatching goroutine. Failures are logged
// and never returned to the program.
package history
