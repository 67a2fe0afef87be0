// Command journal maintains the media update journal outside the running
// watcher.
//
// Usage:
//
//	journal <command> [flags]
//
// Commands:
//
//	check   Load the journal as stored and report record counts per
//	        category, duplicate paths and entries without a path. With
//	        --fix the journal is rewritten newest first without duplicates.
//	        With --stat every record's file is checked on disk.
//
//	export  Write the journal (optionally one --category) as a JSON array
//	        to --output or stdout. Exporting a SQLite journal produces a
//	        file the JSON backend and the archive page can read.
//
//	import  Merge the records of a JSON journal given with --input into the
//	        journal, skipping paths already present. --replace discards the
//	        current records; it asks first on a terminal and otherwise
//	        requires --yes.
//
//	render  Rebuild index.html and the archive files in --site-dir from the
//	        journal. With --publish the files are committed and pushed.
//
// Every command takes --backend (json or sqlite) and --journal, which
// default to JOURNAL_BACKEND and JOURNAL_PATH.
//
// Stop the watcher before running import, check --fix or render against
// the journal it uses; the watcher rewrites the journal from memory.
package main
