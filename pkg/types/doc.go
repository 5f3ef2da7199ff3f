/*
Package types defines the entities shared across the storage core: the
instance, the database/table/column catalog, column data blocks, and the
user/permission model.

Ownership nests as in the data model: an Instance owns Databases, a
Database owns Tables and its registries, a Table owns ColumnSets, Columns
and Indices, and a Column owns its chain of ColumnDataBlocks. IDs are typed
(DatabaseID, TableID, ColumnID, ...) so catalog code cannot accidentally mix
an id from one namespace into another.
*/
package types
