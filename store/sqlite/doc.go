// Package sqlite provides SQLite storage for the research pipeline: a
// research.CheckpointStore and Journal, an activity.Sink that keeps the
// activity log of every run.
//
// Both can share one database:
//
//	db, err := sqlite.Open("research.db")
//	if err != nil {
//		return err
//	}
//	checkpoints, err := sqlite.NewCheckpointStoreWithDB(ctx, db, "")
//	journal, err := sqlite.NewJournalWithDB(ctx, db, "", logger)
//
//	p, err := research.New(collaborators,
//		research.WithCheckpointStore(checkpoints),
//		research.WithSink(journal),
//	)
package sqlite
