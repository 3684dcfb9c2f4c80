// Package export writes generated training data to columnar files.
//
// Each completed round becomes one file named
// <model>_<run_id>_round<k>.<ext> in the output folder, with columns
// param_set_id, idx, one float32 column per feature, and label. Files are
// written to a temporary name and renamed into place, so a round file
// either exists in full or not at all.
//
// ArrowWriter produces Arrow IPC files; ParquetWriter produces Parquet
// through an in-process DuckDB. Both implement datagen.Sink and can be
// combined with the SQLite store through datagen.MultiSink.
package export
