// Package database opens the SQLite file behind the execution journal and
// applies its schema.
//
// Open enables WAL mode and a busy timeout and keeps a single pooled
// connection, which serialises the journal's writers. Migrate applies
// numbered *.up.sql files from any fs.FS; the binary passes the embedded
// migrations.FS, tests may pass an fstest.MapFS.
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations only add. A new column is nullable or has a default.
package database
