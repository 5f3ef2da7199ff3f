/*
Package mainindex implements the master-column main index described in
spec.md's external-collaborator contract. The storage core never builds a
general-purpose B+Tree or hash index itself — it only ever needs the
contract: minimum and maximum key, point lookup, ordered iteration by
find-next-key, erase, and preallocate of a reserved key.

BoltMainIndex backs that contract with a bbolt bucket per table's master
column; UnimplementedIndex backs the B+Tree and Hash index types the
catalog can still declare (Open Question (a)) without actually storing
anything for them.
*/
package mainindex
