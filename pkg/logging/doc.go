/*
Package logging provides structured logging for siodb_iomgr using zerolog.

A single global Logger is configured once via Init and used throughout the
storage core; component and entity loggers are derived from it with
WithComponent, WithDatabase, and WithColumnBlock rather than constructed ad
hoc, so every log line about a given column block carries the same
database/table/column/block-id fields regardless of which package emitted
it.

Every entry also carries a "tid" field holding the emitting OS thread's
Linux kernel thread id (see Open Question (b) in SPEC_FULL.md); on other
platforms this field is always zero.

# Usage

	logging.Init(logging.Config{Level: logging.InfoLevel, JSONOutput: true})

	blockLog := logging.WithColumnBlock(dbName, tableName, columnName, blockID)
	blockLog.Info().Msg("block finalized")
*/
package logging
